package protocol

// EventLoadContainer asks the review application to load a batch of assets.
const EventLoadContainer = "ayon_load_container"

// LoadRequest is one element of the EventLoadContainer JSON array.
type LoadRequest struct {
	ObjectName     string `json:"objectName,omitempty"`
	Representation string `json:"representation"`
	Extension      string `json:"extension,omitempty"`
}

// EncodeLoadRequests encodes a batch as the event contents.
func EncodeLoadRequests(requests []LoadRequest) (string, error) {
	if requests == nil {
		requests = []LoadRequest{}
	}
	data, err := json.Marshal(requests)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeLoadRequests decodes event contents into a batch.
func DecodeLoadRequests(contents []byte) ([]LoadRequest, error) {
	var requests []LoadRequest
	if err := json.Unmarshal(contents, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}
