package catalyst

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// fetchErrorRe matches "Failed to fetch <url>. Got status <code>. Response was '<body>'"
var fetchErrorRe = regexp.MustCompile(`^Failed to fetch\s+\S+\. Got status\s+(\d{3})\. Response was '([\s\S]+)'$`)

// HTTPError is a structured failure returned by a Catalyst endpoint
type HTTPError struct {
	Status      int
	Message     string
	RawResponse string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// FromMessage parses the fetch error format produced by the content client.
// It returns nil when message does not follow that format.
func FromMessage(message string) *HTTPError {
	match := fetchErrorRe.FindStringSubmatch(message)
	if match == nil {
		return nil
	}

	status, err := strconv.Atoi(match[1])
	if err != nil {
		status = 500
	}
	raw := match[2]

	return &HTTPError{
		Status:      status,
		Message:     friendlyMessage(raw),
		RawResponse: raw,
	}
}

// statusCoder is implemented by errors that carry an explicit HTTP status
type statusCoder interface {
	StatusCode() int
}

// FromError converts err into an HTTPError when its status can be determined,
// either from the fetch error format or from an explicit status code.
func FromError(err error) *HTTPError {
	if err == nil {
		return nil
	}

	message := err.Error()
	if parsed := FromMessage(message); parsed != nil {
		return parsed
	}

	var coder statusCoder
	if errors.As(err, &coder) && coder.StatusCode() != 0 {
		return &HTTPError{Status: coder.StatusCode(), Message: message}
	}

	return nil
}

// friendlyMessage extracts "errors" or "message" from a JSON body, falling back to the raw text
func friendlyMessage(raw string) string {
	var body struct {
		Errors  []any `json:"errors"`
		Message any   `json:"message"`
	}
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		return raw
	}

	if len(body.Errors) > 0 {
		parts := make([]string, len(body.Errors))
		for i, e := range body.Errors {
			if s, ok := e.(string); ok {
				parts[i] = s
			} else {
				parts[i] = fmt.Sprint(e)
			}
		}
		return strings.Join(parts, "; ")
	}

	if message, ok := body.Message.(string); ok && message != "" {
		return message
	}

	return raw
}
