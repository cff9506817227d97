package twitter

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DecodeMedia turns an inbound media payload (plain base64 or a data: URI
// with an embedded MIME type) into bytes plus a content type, sniffing the
// type when the payload does not declare one.
func DecodeMedia(payload string) ([]byte, string, error) {
	raw := payload
	contentType := ""
	if strings.HasPrefix(payload, "data:") {
		header, rest, found := strings.Cut(payload, ",")
		if !found {
			return nil, "", fmt.Errorf("malformed data URI in media payload")
		}
		raw = rest
		meta := strings.TrimPrefix(header, "data:")
		contentType, _, _ = strings.Cut(meta, ";")
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, "", fmt.Errorf("decoding media payload: %w", err)
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

type uploadStatus struct {
	MediaIDString  string `json:"media_id_string"`
	ProcessingInfo *struct {
		State          string `json:"state"`
		CheckAfterSecs int    `json:"check_after_secs"`
		Error          *struct {
			Message string `json:"message"`
		} `json:"error"`
	} `json:"processing_info"`
}

// UploadMedia runs the staged INIT/APPEND/FINALIZE upload and returns the
// media id to attach to a tweet.
func (c *Client) UploadMedia(ctx context.Context, data []byte, contentType string) (string, error) {
	endpoint := c.uploadBase + "/media/upload.json"

	initForm := url.Values{
		"command":        {"INIT"},
		"total_bytes":    {strconv.Itoa(len(data))},
		"media_type":     {contentType},
		"media_category": {mediaCategory(contentType)},
	}
	var initOut uploadStatus
	if err := c.call(ctx, http.MethodPost, endpoint, []byte(initForm.Encode()), "application/x-www-form-urlencoded", nil, &initOut); err != nil {
		return "", fmt.Errorf("initializing upload: %w", err)
	}
	mediaID := initOut.MediaIDString
	if mediaID == "" {
		return "", fmt.Errorf("upload INIT response missing media id")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	writer.WriteField("command", "APPEND")
	writer.WriteField("media_id", mediaID)
	writer.WriteField("segment_index", "0")
	part, err := writer.CreateFormFile("media", "media")
	if err != nil {
		return "", fmt.Errorf("building upload body: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("building upload body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("building upload body: %w", err)
	}
	if err := c.call(ctx, http.MethodPost, endpoint, body.Bytes(), writer.FormDataContentType(), nil, nil); err != nil {
		return "", fmt.Errorf("appending upload: %w", err)
	}

	finalizeForm := url.Values{
		"command":  {"FINALIZE"},
		"media_id": {mediaID},
	}
	var finalizeOut uploadStatus
	if err := c.call(ctx, http.MethodPost, endpoint, []byte(finalizeForm.Encode()), "application/x-www-form-urlencoded", nil, &finalizeOut); err != nil {
		return "", fmt.Errorf("finalizing upload: %w", err)
	}

	return mediaID, c.awaitProcessing(ctx, endpoint, mediaID, finalizeOut)
}

// awaitProcessing polls the upload STATUS command until the remote side
// finishes processing. Images usually complete inside FINALIZE; GIFs and
// video take a few polls.
func (c *Client) awaitProcessing(ctx context.Context, endpoint, mediaID string, status uploadStatus) error {
	for polls := 0; polls < 10; polls++ {
		info := status.ProcessingInfo
		if info == nil || info.State == "" || info.State == "succeeded" {
			return nil
		}
		if info.State == "failed" {
			message := "media processing failed"
			if info.Error != nil && info.Error.Message != "" {
				message = info.Error.Message
			}
			return &APIError{StatusCode: http.StatusOK, Message: message}
		}

		wait := time.Duration(info.CheckAfterSecs) * time.Second
		if wait <= 0 {
			wait = time.Second
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		statusURL := endpoint + "?command=STATUS&media_id=" + url.QueryEscape(mediaID)
		status = uploadStatus{}
		if err := c.call(ctx, http.MethodGet, statusURL, nil, "", nil, &status); err != nil {
			return fmt.Errorf("checking upload status: %w", err)
		}
	}
	return fmt.Errorf("media processing did not complete")
}

func mediaCategory(contentType string) string {
	switch {
	case strings.Contains(contentType, "gif"):
		return "tweet_gif"
	case strings.HasPrefix(contentType, "video/"):
		return "tweet_video"
	default:
		return "tweet_image"
	}
}
