package http

import (
	"io"
	"strconv"
)

// Status is a response status code.
type Status uint16

const (
	StatusContinue            Status = 100
	StatusOK                  Status = 200
	StatusNotFound            Status = 404
	StatusInternalServerError Status = 500
)

// StatusText returns the reason phrase for code.
func StatusText(code Status) string {
	switch code {
	case StatusContinue:
		return "Continue"
	case StatusOK:
		return "OK"
	case StatusNotFound:
		return "Not Found"
	case StatusInternalServerError:
		return "Internal Server Error"
	default:
		return "Unknown"
	}
}

func (s Status) String() string {
	return strconv.Itoa(int(s)) + " " + StatusText(s)
}

// ServerName is sent in the Server header of every response.
const ServerName = "Dory"

// CORSHeaders allow any origin, method and header.
const CORSHeaders = "Access-Control-Allow-Origin: *\r\n" +
	"Access-Control-Allow-Methods: *\r\n" +
	"Access-Control-Allow-Headers: *\r\n"

// Response is an in-memory response. Body is borrowed, not copied: whatever
// backs it must stay valid until the response has been written and flushed.
type Response struct {
	Body         []byte
	Charset      string
	ExtraHeaders string // raw header lines, each terminated by CRLF
	MimeType     MimeType
	Status       Status
	KeepAlive    bool
}

// NewResponse returns a utf-8 text/plain response with the given status and body.
func NewResponse(status Status, body []byte) Response {
	return Response{
		Body:     body,
		Charset:  CharsetUTF8,
		MimeType: MimeTextPlain,
		Status:   status,
	}
}

// TextResponse is NewResponse for a string body.
func TextResponse(status Status, body string) Response {
	return NewResponse(status, []byte(body))
}

// AppendHeader appends the status line and header block, including the
// terminating blank line, to dst.
func (r Response) AppendHeader(dst []byte) []byte {
	status := r.Status
	if status == 0 {
		status = StatusOK
	}
	mime := r.MimeType
	if mime == "" {
		mime = MimeTextPlain
	}

	dst = append(dst, "HTTP/1.1 "...)
	dst = strconv.AppendInt(dst, int64(status), 10)
	dst = append(dst, ' ')
	dst = append(dst, StatusText(status)...)
	dst = append(dst, "\r\n"...)

	dst = append(dst, "Content-Type: "...)
	dst = append(dst, mime...)
	if r.Charset != "" {
		dst = append(dst, "; charset="...)
		dst = append(dst, r.Charset...)
	}
	dst = append(dst, "\r\n"...)

	dst = append(dst, "Content-Length: "...)
	dst = strconv.AppendInt(dst, int64(len(r.Body)), 10)
	dst = append(dst, "\r\n"...)

	dst = append(dst, "Server: "+ServerName+"\r\n"...)

	dst = append(dst, "Connection: "...)
	if r.KeepAlive {
		dst = append(dst, "keep-alive"...)
	} else {
		dst = append(dst, "closed"...)
	}
	dst = append(dst, "\r\n"...)

	dst = append(dst, r.ExtraHeaders...)
	dst = append(dst, "\r\n"...)
	return dst
}

// AppendTo appends the full wire form of r to dst.
func (r Response) AppendTo(dst []byte) []byte {
	dst = r.AppendHeader(dst)
	return append(dst, r.Body...)
}

// WriteTo writes the header block and then the body to w.
func (r Response) WriteTo(w io.Writer) (int64, error) {
	head := r.AppendHeader(make([]byte, 0, 192+len(r.ExtraHeaders)))

	n, err := w.Write(head)
	total := int64(n)
	if err != nil {
		return total, err
	}
	if len(r.Body) == 0 {
		return total, nil
	}

	n, err = w.Write(r.Body)
	total += int64(n)
	return total, err
}
