package core

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// Request is one vendoring request parsed from a "name" or
// "name@requirement" token.
type Request struct {
	Raw     string
	Name    string
	Version *VersionReq
}

// ParseRequest splits a token on "@". More than one "@" is rejected
// rather than silently dropping the requirement.
func ParseRequest(raw string) (Request, error) {
	token := strings.TrimSpace(raw)
	parts := strings.Split(token, "@")
	if len(parts) > 2 {
		return Request{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("malformed request: %q contains more than one '@'", raw))
	}
	name := strings.TrimSpace(parts[0])
	if name == "" {
		return Request{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("malformed request: %q has no package name", raw))
	}
	request := Request{Raw: raw, Name: name}
	if len(parts) == 2 {
		version, err := ParseVersionReq(parts[1])
		if err != nil {
			return Request{}, err
		}
		request.Version = version
	}
	return request, nil
}

// ParseRequests parses every token up front so that a malformed token
// fails the run before any filesystem work.
func ParseRequests(tokens []string) ([]Request, error) {
	requests := make([]Request, 0, len(tokens))
	for _, token := range tokens {
		request, err := ParseRequest(token)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, nil
}
