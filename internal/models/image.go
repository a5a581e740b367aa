package models

// Image is a fetched remote image.
type Image struct {
	Data        []byte
	ContentType string
}
