package admin

// UnassignedColor is used for zones with no worker or an unknown one.
const UnassignedColor = "gray"

var zoneColors = map[string]string{
	"Worker 1": "blue",
	"Worker 2": "green",
}

// ZoneColor maps the zone's current worker to its display color.
func ZoneColor(worker *string) string {
	if worker == nil {
		return UnassignedColor
	}
	if c, ok := zoneColors[*worker]; ok {
		return c
	}
	return UnassignedColor
}
