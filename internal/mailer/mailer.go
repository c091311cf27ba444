// Package mailer dispatches composed alerts through SES as a single raw MIME
// message with the report attached.
package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/Nao-Mk2/aws-error-monitor/internal/diag"
	"github.com/Nao-Mk2/aws-error-monitor/internal/model"
)

// SESAPI is the subset of the SES API we use.
type SESAPI interface {
	SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

// DispatchError wraps an email backend rejection. Dispatch failures are
// fatal for the invocation; there is no retry or fallback send.
type DispatchError struct {
	Err error
}

func (e *DispatchError) Error() string { return "email dispatch rejected: " + e.Err.Error() }
func (e *DispatchError) Unwrap() error { return e.Err }

// Mailer sends EmailMessages from a fixed sender address.
type Mailer struct {
	api    SESAPI
	sender string
	rec    diag.Recorder
}

// Option configures a Mailer.
type Option func(*Mailer)

// WithRecorder attaches a diagnostic recorder.
func WithRecorder(rec diag.Recorder) Option {
	return func(m *Mailer) { m.rec = rec }
}

// New creates a Mailer.
func New(api SESAPI, sender string, opts ...Option) *Mailer {
	m := &Mailer{api: api, sender: sender, rec: diag.Nop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dispatch hands the message to SES addressed to all recipients and returns
// the backend's message id. Acceptance by SES does not guarantee delivery.
func (m *Mailer) Dispatch(ctx context.Context, msg model.EmailMessage) (string, error) {
	if len(msg.Recipients) == 0 {
		return "", &DispatchError{Err: fmt.Errorf("no recipients")}
	}
	raw, err := BuildMIME(m.sender, msg)
	if err != nil {
		return "", fmt.Errorf("build message: %w", err)
	}
	out, err := m.api.SendRawEmail(ctx, &ses.SendRawEmailInput{
		Source:       aws.String(m.sender),
		Destinations: msg.Recipients,
		RawMessage:   &types.RawMessage{Data: raw},
	})
	if err != nil {
		return "", &DispatchError{Err: err}
	}
	id := aws.ToString(out.MessageId)
	m.rec.EmailDispatched(id, len(msg.Recipients))
	return id, nil
}

// BuildMIME assembles the multipart/mixed message: a text/plain body part
// and the report as a base64 text attachment.
func BuildMIME(sender string, msg model.EmailMessage) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", sender)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(msg.Recipients, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", w.Boundary())

	body, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=utf-8"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := body.Write([]byte(msg.Body)); err != nil {
		return nil, err
	}

	att, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/plain; charset=utf-8"},
		"Content-Transfer-Encoding": {"base64"},
		"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", msg.AttachmentName)},
	})
	if err != nil {
		return nil, err
	}
	if err := writeBase64(att, msg.Attachment); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeBase64 writes data base64-encoded in 76-character lines per RFC 2045.
func writeBase64(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	const lineLen = 76
	for len(encoded) > 0 {
		n := lineLen
		if n > len(encoded) {
			n = len(encoded)
		}
		if _, err := fmt.Fprintf(w, "%s\r\n", encoded[:n]); err != nil {
			return err
		}
		encoded = encoded[n:]
	}
	return nil
}
