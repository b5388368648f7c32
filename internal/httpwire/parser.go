// Package httpwire implements the deliberately minimal HTTP/1.1 subset the
// federation endpoint speaks: parse a single request line + headers off a
// TLS connection, write a single response, no keep-alive, no bodies on
// requests, no chunked transfer. It is a resumable incremental parser over
// a fixed-size accumulation buffer, in the spirit of picohttpparser.
package httpwire

import (
	"bytes"
)

// MinBufferSize is the smallest accumulation buffer ReadRequest uses; a
// smaller requested size is raised to it.
const MinBufferSize = 4096

// MaxHeaders bounds the number of header lines a request may carry.
const MaxHeaders = 100

// Header is a single parsed request header line.
type Header struct {
	Name  string
	Value string
}

// Request is the result of a completed parse.
type Request struct {
	Method  string
	Path    string
	Minor   int // HTTP minor version (1 for HTTP/1.1)
	Headers []Header
}

// Status distinguishes the three outcomes of one parse attempt.
type Status int

const (
	// StatusComplete means buf[:consumed] held one full request.
	StatusComplete Status = iota
	// StatusIncomplete means more bytes are needed before the request is parseable.
	StatusIncomplete
	// StatusMalformed means buf contains bytes that can never form a valid request.
	StatusMalformed
)

// ParseResult is returned by ParseRequest.
type ParseResult struct {
	Status   Status
	Request  Request
	Consumed int // bytes consumed by a complete parse; 0 otherwise
}

// ParseRequest attempts to parse one HTTP/1.1 request line and its headers
// from buf. It is resumable: call it again with a longer buf (the same
// bytes plus newly read ones) after a StatusIncomplete result, exactly like
// picohttpparser's phr_parse_request contract referenced in the component
// design. prevLen is the length buf had on the previous call and lets the
// parser skip re-scanning bytes it already classified as not-yet-terminated;
// passing 0 always works, just does more re-scanning.
func ParseRequest(buf []byte, prevLen int) ParseResult {
	headerEnd := findHeaderEnd(buf, prevLen)
	if headerEnd < 0 {
		return ParseResult{Status: StatusIncomplete}
	}

	head := buf[:headerEnd]
	lines := bytes.Split(head, []byte("\r\n"))
	if len(lines) == 0 || len(lines[0]) == 0 {
		return ParseResult{Status: StatusMalformed}
	}

	method, path, minor, ok := parseRequestLine(lines[0])
	if !ok {
		return ParseResult{Status: StatusMalformed}
	}

	var headers []Header
	for _, line := range lines[1:] {
		if len(line) == 0 {
			continue
		}
		if len(headers) >= MaxHeaders {
			return ParseResult{Status: StatusMalformed}
		}
		h, ok := parseHeaderLine(line)
		if !ok {
			return ParseResult{Status: StatusMalformed}
		}
		headers = append(headers, h)
	}

	return ParseResult{
		Status: StatusComplete,
		Request: Request{
			Method:  method,
			Path:    path,
			Minor:   minor,
			Headers: headers,
		},
		Consumed: headerEnd + 4, // including the terminating \r\n\r\n
	}
}

// findHeaderEnd returns the index of the \r\n\r\n that ends the header
// block, or -1 if it hasn't arrived yet. Scanning restarts a few bytes
// before prevLen so a terminator split across two reads is still found.
func findHeaderEnd(buf []byte, prevLen int) int {
	start := prevLen - 3
	if start < 0 {
		start = 0
	}
	idx := bytes.Index(buf[start:], []byte("\r\n\r\n"))
	if idx < 0 {
		return -1
	}
	return start + idx
}

func parseRequestLine(line []byte) (method, path string, minor int, ok bool) {
	parts := bytes.SplitN(line, []byte(" "), 3)
	if len(parts) != 3 {
		return "", "", 0, false
	}
	method = string(parts[0])
	path = string(parts[1])
	version := string(parts[2])

	switch version {
	case "HTTP/1.0":
		minor = 0
	case "HTTP/1.1":
		minor = 1
	default:
		return "", "", 0, false
	}
	if method == "" || path == "" || path[0] != '/' {
		return "", "", 0, false
	}
	return method, path, minor, true
}

func parseHeaderLine(line []byte) (Header, bool) {
	idx := bytes.IndexByte(line, ':')
	if idx <= 0 {
		return Header{}, false
	}
	name := string(bytes.TrimSpace(line[:idx]))
	value := string(bytes.TrimSpace(line[idx+1:]))
	if name == "" {
		return Header{}, false
	}
	return Header{Name: name, Value: value}, true
}
