package utils

// ResponseData is the JSON envelope returned by every REST handler.
type ResponseData struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Results any    `json:"results,omitempty"`
}

// PanicIfNeeded panics with the given error so the Recovery middleware can
// translate it into a structured response. Handlers use this to keep the
// happy path flat.
func PanicIfNeeded(err error) {
	if err != nil {
		panic(err)
	}
}
