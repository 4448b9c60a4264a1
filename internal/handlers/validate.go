package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"zoneroute/internal/database"
	"zoneroute/internal/models"
)

type rosterKey struct{}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// worker checks the value against the roster stored in the context
	v.RegisterValidationCtx("worker", func(ctx context.Context, fl validator.FieldLevel) bool {
		roster, _ := ctx.Value(rosterKey{}).([]string)
		return models.IsKnownWorker(roster, fl.Field().String())
	})
	return v
}

// validateRequest runs struct validation with the current worker roster.
func validateRequest(ctx context.Context, store database.Store, req interface{}) error {
	workers, err := store.Workers(ctx)
	if err != nil {
		return fmt.Errorf("failed to load workers: %w", err)
	}
	ctx = context.WithValue(ctx, rosterKey{}, workers)
	return validate.StructCtx(ctx, req)
}

func isValidationError(err error) bool {
	var verrs validator.ValidationErrors
	return errors.As(err, &verrs)
}

// validationMessage flattens validator errors into one line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "worker":
			parts = append(parts, fmt.Sprintf("unknown worker %q", fe.Value()))
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fe.Field()+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}
