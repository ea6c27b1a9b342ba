package ingest

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind is the classified message kind of an inbound payload
type Kind string

const (
	KindText     Kind = "text"
	KindAudio    Kind = "audio"
	KindImage    Kind = "image"
	KindDocument Kind = "document"
)

// Payload is the loosely-typed body posted by the automation pipeline to the
// unified webhook. At most one kind-group is expected to be populated; when
// several are, classification precedence decides.
type Payload struct {
	Mensagem string `json:"mensagem,omitempty"`

	ImagemBase64    string `json:"imagem-base64,omitempty"`
	ImagemAnalisada string `json:"imagem-analisada,omitempty"`

	DocumentoBase64   string `json:"documento-base64,omitempty"`
	DocumentoConteudo string `json:"documento-conteudo,omitempty"`

	AudioTranscrito string `json:"audio-transcrito,omitempty"`
	AudioBase64     string `json:"audio-base64,omitempty"`

	Sender    string `json:"sender,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	IsGroup   bool   `json:"isGroup,omitempty"`
	GroupName string `json:"groupName,omitempty"`
}

var (
	audioPrefixRe = regexp.MustCompile(`^data:audio/[a-zA-Z0-9]+;base64,`)
	imagePrefixRe = regexp.MustCompile(`^data:image/[a-zA-Z0-9]+;base64,`)
	mediaPrefixRe = regexp.MustCompile(`^data:([a-zA-Z0-9][a-zA-Z0-9/+.-]*);base64,`)
)

// Classify determines the message kind of p using fixed precedence
// text > audio > image > document. The first group with any non-empty member
// wins. Classification is pure: the same payload always yields the same kind.
func Classify(p *Payload) (Kind, error) {
	switch {
	case strings.TrimSpace(p.Mensagem) != "":
		return KindText, nil
	case p.AudioBase64 != "" || p.AudioTranscrito != "":
		return KindAudio, nil
	case p.ImagemBase64 != "" || p.ImagemAnalisada != "":
		return KindImage, nil
	case p.DocumentoBase64 != "" || p.DocumentoConteudo != "":
		return KindDocument, nil
	default:
		return "", ErrUnrecognizedPayload
	}
}

// ValidateAudioEncoding checks the data-URI prefix of an audio payload.
// Empty input is fine: audio may arrive as transcription only.
func ValidateAudioEncoding(audioBase64 string) error {
	if audioBase64 == "" {
		return nil
	}
	if !audioPrefixRe.MatchString(audioBase64) {
		return fmt.Errorf("%w: use data:audio/[tipo];base64,[dados]", ErrInvalidEncoding)
	}
	return nil
}

// ValidateImageEncoding checks the data-URI prefix of an image payload.
func ValidateImageEncoding(imageBase64 string) error {
	if imageBase64 == "" {
		return nil
	}
	if !imagePrefixRe.MatchString(imageBase64) {
		return fmt.Errorf("%w: use data:image/[tipo];base64,[dados]", ErrInvalidEncoding)
	}
	return nil
}

// ValidateMediaEncoding checks the generic data-URI prefix used by the
// explicit media endpoint, where any MIME type is acceptable.
func ValidateMediaEncoding(mediaBase64 string) error {
	if mediaBase64 == "" {
		return nil
	}
	if !mediaPrefixRe.MatchString(mediaBase64) {
		return fmt.Errorf("%w: use data:[mimeType];base64,[dados]", ErrInvalidEncoding)
	}
	return nil
}

// DataURIMimeType extracts the MIME type from a data-URI payload, returning
// fallback when the payload is empty or carries no recognizable prefix.
func DataURIMimeType(dataURI, fallback string) string {
	m := mediaPrefixRe.FindStringSubmatch(dataURI)
	if m == nil {
		return fallback
	}
	return m[1]
}

// DecodedSize approximates the decoded byte size of a base64 data-URI
// (base64 is roughly a third larger than the raw content).
func DecodedSize(dataURI string) int64 {
	idx := strings.IndexByte(dataURI, ',')
	if idx < 0 {
		return 0
	}
	data := dataURI[idx+1:]
	return int64(len(data)) * 3 / 4
}
