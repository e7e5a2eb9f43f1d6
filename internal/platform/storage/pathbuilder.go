package storage

import (
	"fmt"
	"strings"
)

// Rendition names one stored version of an uploaded image.
type Rendition string

const (
	RenditionOriginal  Rendition = "original"
	RenditionMedium    Rendition = "medium"
	RenditionThumbnail Rendition = "thumb"
)

// PathParams provide the identifiers composed into an object key.
type PathParams struct {
	Folder   string
	UploadID string
	FileName string
}

// PathBuilder composes the object path for a rendition.
type PathBuilder func(PathParams) (string, error)

var pathBuilders = map[Rendition]PathBuilder{
	RenditionOriginal:  renditionPath(RenditionOriginal),
	RenditionMedium:    renditionPath(RenditionMedium),
	RenditionThumbnail: renditionPath(RenditionThumbnail),
}

// BuildObjectPath resolves the object key for the given rendition.
func BuildObjectPath(rendition Rendition, params PathParams) (string, error) {
	builder, ok := pathBuilders[rendition]
	if !ok {
		return "", fmt.Errorf("storage: unsupported rendition %q", rendition)
	}
	return builder(params)
}

// renditionPath lays objects out as media/{folder}/{uploadID}/{rendition}/{file}.
func renditionPath(rendition Rendition) PathBuilder {
	return func(params PathParams) (string, error) {
		folder, err := validateSegment("folder", params.Folder)
		if err != nil {
			return "", err
		}
		uploadID, err := validateSegment("uploadID", params.UploadID)
		if err != nil {
			return "", err
		}
		fileName, err := validateFileName(params.FileName)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("media/%s/%s/%s/%s", folder, uploadID, rendition, fileName), nil
	}
}

func validateSegment(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: %s is required", name)
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("storage: %s contains invalid path characters", name)
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: %s contains invalid traversal sequence", name)
	}
	return value, nil
}

func validateFileName(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: fileName is required")
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("storage: fileName contains invalid path characters")
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: fileName contains invalid traversal sequence")
	}
	return value, nil
}
