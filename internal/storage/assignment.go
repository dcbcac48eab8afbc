package storage

// Assignment is the list of models a production area works on.
type Assignment struct {
	Area   string   `json:"area"`
	Models []string `json:"models"`
}
