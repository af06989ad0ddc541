package loader

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/askdoc-cloud/askdoc/internal/domain"
)

// parseEML separates headers from body: the subject becomes the first segment,
// followed by one segment per readable body part.
func parseEML(data []byte, filename string) ([]domain.Segment, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptDocument, err)
	}

	var segments []domain.Segment
	if subject := decodeSubject(msg.Header.Get("Subject")); subject != "" {
		segments = append(segments, domain.Segment{
			SourceID: filename,
			Position: 0,
			Text:     "Subject: " + normalizeWhitespace(subject),
		})
	}

	bodies, err := extractBodies(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptDocument, err)
	}
	for _, body := range bodies {
		segments = append(segments, domain.Segment{
			SourceID: filename,
			Position: len(segments),
			Text:     normalizeWhitespace(body),
		})
	}
	return segments, nil
}

func decodeSubject(raw string) string {
	dec := new(mime.WordDecoder)
	subject, err := dec.DecodeHeader(raw)
	if err != nil {
		return raw
	}
	return subject
}

// extractBodies returns the readable text parts of a message body. Multipart
// messages yield one entry per text/* part; nested multiparts are walked one
// level deep, which covers the common multipart/alternative-in-mixed layout.
func extractBodies(contentType, transferEncoding string, body io.Reader) ([]string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// No or malformed Content-Type: treat the body as plain text.
		return readTextPart("text/plain", transferEncoding, body)
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return nil, fmt.Errorf("multipart message without boundary")
		}
		return readMultipart(body, boundary)
	}

	return readTextPart(mediaType, transferEncoding, body)
}

func readMultipart(body io.Reader, boundary string) ([]string, error) {
	var texts []string
	mr := multipart.NewReader(body, boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		partType, partParams, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil {
			partType = "text/plain"
		}
		if strings.HasPrefix(partType, "multipart/") {
			if nested, err := readMultipart(part, partParams["boundary"]); err == nil {
				texts = append(texts, nested...)
			}
			continue
		}

		partTexts, err := readTextPart(partType, part.Header.Get("Content-Transfer-Encoding"), part)
		if err != nil {
			continue
		}
		texts = append(texts, partTexts...)
	}
	return texts, nil
}

func readTextPart(mediaType, transferEncoding string, r io.Reader) ([]string, error) {
	if !strings.HasPrefix(mediaType, "text/") {
		return nil, nil
	}

	switch strings.ToLower(strings.TrimSpace(transferEncoding)) {
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	text := string(data)
	if mediaType == "text/html" {
		text = stripTags(text)
	}
	return []string{text}, nil
}

// stripTags removes HTML markup, keeping the visible text.
func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
			b.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}
