package googlebooks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

const DefaultEndpoint = "https://www.googleapis.com/books/v1"

// MatureRating is the maturity rating value the volumes API uses for adult works.
const MatureRating = "MATURE"

type ImageLinks struct {
	SmallThumbnail string `json:"smallThumbnail"`
	Thumbnail      string `json:"thumbnail"`
}

type VolumeInfo struct {
	Title          string      `json:"title"`
	Subtitle       string      `json:"subtitle"`
	Authors        []string    `json:"authors"`
	Description    string      `json:"description"`
	PublishedDate  string      `json:"publishedDate"`
	PageCount      int         `json:"pageCount"`
	MaturityRating string      `json:"maturityRating"`
	InfoLink       string      `json:"infoLink"`
	ImageLinks     *ImageLinks `json:"imageLinks"`
}

type Volume struct {
	ID         string     `json:"id"`
	VolumeInfo VolumeInfo `json:"volumeInfo"`
}

func (v Volume) IsMature() bool {
	return v.VolumeInfo.MaturityRating == MatureRating
}

func (v Volume) Thumbnail() string {
	if v.VolumeInfo.ImageLinks == nil {
		return ""
	}
	// The API hands out plain http links; the https host serves the same image.
	return strings.Replace(v.VolumeInfo.ImageLinks.Thumbnail, "http://", "https://", 1)
}

func FetchVolume(ctx context.Context, endpoint, apiKey, volumeID string) (*Volume, error) {
	target := fmt.Sprintf("%s/volumes/%s", strings.TrimSuffix(endpoint, "/"), url.PathEscape(volumeID))
	if len(apiKey) > 0 {
		target += "?key=" + url.QueryEscape(apiKey)
	}
	log.Debug().Str("volume", volumeID).Msg("Fetching google books volume...")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch volume: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %v", err)
	}

	if resp.StatusCode != fiber.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d, response: %s", resp.StatusCode, body)
	}

	var volume Volume
	if err := jsoniter.Unmarshal(body, &volume); err != nil {
		return nil, fmt.Errorf("failed to parse volume JSON: %v", err)
	}

	return &volume, nil
}
