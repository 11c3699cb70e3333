package request

// OpenFIGIKeyRequest carries the lookup-service API key to be stored
// encrypted at rest.
type OpenFIGIKeyRequest struct {
	Key string `json:"key"`
}
