package mail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"time"
)

// Content is the subject and body produced by merging an email template
// with a payment group.
type Content struct {
	Subject string
	Body    string
}

// Attachment is a rendered voucher carried on an outbound message.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Message is a fully addressed outbound email.
type Message struct {
	From        string
	FromName    string
	To          string
	Subject     string
	Body        string
	HTML        bool
	Attachments []Attachment
}

// Encode renders the message as an RFC 5322 byte stream: a single
// quoted-printable body when there are no attachments, multipart/mixed
// with base64 parts otherwise.
func (m Message) Encode() ([]byte, error) {
	var buf bytes.Buffer

	from := mail.Address{Name: m.FromName, Address: m.From}
	to := mail.Address{Address: m.To}
	fmt.Fprintf(&buf, "From: %s\r\n", from.String())
	fmt.Fprintf(&buf, "To: %s\r\n", to.String())
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")

	if len(m.Attachments) == 0 {
		fmt.Fprintf(&buf, "Content-Type: %s; charset=utf-8\r\n", m.bodyType())
		buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
		if err := writeQuotedPrintable(&buf, m.Body); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	mw := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mw.Boundary())

	bodyHeader := textproto.MIMEHeader{}
	bodyHeader.Set("Content-Type", m.bodyType()+"; charset=utf-8")
	bodyHeader.Set("Content-Transfer-Encoding", "quoted-printable")
	part, err := mw.CreatePart(bodyHeader)
	if err != nil {
		return nil, fmt.Errorf("writing body part: %w", err)
	}
	if err := writeQuotedPrintable(part, m.Body); err != nil {
		return nil, err
	}

	for _, att := range m.Attachments {
		header := textproto.MIMEHeader{}
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)
		header.Set("Content-Transfer-Encoding", "base64")
		header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", att.Name))
		part, err := mw.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("writing attachment %s: %w", att.Name, err)
		}
		if err := writeBase64(part, att.Data); err != nil {
			return nil, fmt.Errorf("encoding attachment %s: %w", att.Name, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart message: %w", err)
	}
	return buf.Bytes(), nil
}

func (m Message) bodyType() string {
	if m.HTML {
		return "text/html"
	}
	return "text/plain"
}

func writeQuotedPrintable(w io.Writer, body string) error {
	qp := quotedprintable.NewWriter(w)
	if _, err := qp.Write([]byte(body)); err != nil {
		return fmt.Errorf("encoding body: %w", err)
	}
	return qp.Close()
}

// writeBase64 emits standard base64 wrapped at 76 columns per RFC 2045.
func writeBase64(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 0 {
		n := len(encoded)
		if n > 76 {
			n = 76
		}
		if _, err := fmt.Fprintf(w, "%s\r\n", encoded[:n]); err != nil {
			return err
		}
		encoded = encoded[n:]
	}
	return nil
}
