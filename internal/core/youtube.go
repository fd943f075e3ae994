package core

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

var (
	// ErrInvalidYouTubeURL is returned for links that are not YouTube links.
	ErrInvalidYouTubeURL = errors.New("Please enter a valid YouTube URL")

	// ErrMissingVideoID is returned for YouTube links without a video id.
	ErrMissingVideoID = errors.New("Could not extract video ID")
)

var bareVideoID = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ExtractVideoID returns the video id of a youtube.com or youtu.be link.
// A bare 11 character id is accepted as is.
func ExtractVideoID(link string) (string, error) {
	link = strings.TrimSpace(link)
	if bareVideoID.MatchString(link) {
		return link, nil
	}

	parsed, err := url.Parse(link)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", ErrInvalidYouTubeURL
	}

	host := strings.ToLower(parsed.Hostname())
	var id string
	switch {
	case strings.Contains(host, "youtube.com"):
		id = parsed.Query().Get("v")
	case strings.Contains(host, "youtu.be"):
		id = strings.TrimPrefix(parsed.Path, "/")
	default:
		return "", ErrInvalidYouTubeURL
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrMissingVideoID
	}
	return id, nil
}

// WatchURL is the canonical link stored with a video thumbnail.
func WatchURL(videoID string) string {
	return "https://youtube.com/watch?v=" + videoID
}

// PreviewImageURL is YouTube's own full size thumbnail for a video.
func PreviewImageURL(videoID string) string {
	return "https://img.youtube.com/vi/" + videoID + "/maxresdefault.jpg"
}
