package example

// Example is a person registered through the example API. DNI is unique.
type Example struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	DNI  string `json:"dni"`

	// Password is accepted on create and never returned.
	Password string `json:"-"`
}

// CreateRequest is the body of POST /api/v1/examples.
type CreateRequest struct {
	Name     string `json:"name"`
	DNI      string `json:"dni"`
	Password string `json:"password,omitempty"`
	Token    string `json:"token,omitempty"`
}

// Response is the API representation of an Example.
type Response struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	DNI  string `json:"dni"`
}

// ToResponse converts an Example to its API representation.
func ToResponse(e *Example) Response {
	return Response{ID: e.ID, Name: e.Name, DNI: e.DNI}
}
