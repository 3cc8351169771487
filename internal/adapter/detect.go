package adapter

import "os"

type Detection struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// DetectAvailable lists the agents whose tool directory exists below home.
func DetectAvailable(home string) []Detection {
	out := make([]Detection, 0, len(agents))
	for _, id := range IDs() {
		root := agents[id].Root(home)
		if stat, err := os.Stat(root); err == nil && stat.IsDir() {
			out = append(out, Detection{Name: id, Path: root, Reason: "default " + id + " root exists"})
		}
	}
	return out
}
