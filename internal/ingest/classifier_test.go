package ingest

import (
	"errors"
	"testing"
)

func TestClassifyPrecedence(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
		want    Kind
	}{
		{"text only", Payload{Mensagem: "Olá"}, KindText},
		{"audio base64 only", Payload{AudioBase64: "data:audio/ogg;base64,AAAA"}, KindAudio},
		{"audio transcription only", Payload{AudioTranscrito: "oi"}, KindAudio},
		{"image only", Payload{ImagemBase64: "data:image/png;base64,AAAA"}, KindImage},
		{"image analysis only", Payload{ImagemAnalisada: "um gato"}, KindImage},
		{"document only", Payload{DocumentoConteudo: "contrato"}, KindDocument},
		{"text beats audio", Payload{Mensagem: "oi", AudioTranscrito: "oi"}, KindText},
		{"audio beats image", Payload{AudioTranscrito: "oi", ImagemAnalisada: "x"}, KindAudio},
		{"image beats document", Payload{ImagemAnalisada: "x", DocumentoConteudo: "y"}, KindImage},
		{"all groups populated", Payload{Mensagem: "a", AudioBase64: "b", ImagemBase64: "c", DocumentoBase64: "d"}, KindText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(&tt.payload)
			if err != nil {
				t.Fatalf("Classify returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Classify = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifyIsPure(t *testing.T) {
	p := Payload{AudioTranscrito: "oi"}
	first, _ := Classify(&p)
	second, _ := Classify(&p)
	if first != second {
		t.Errorf("classification changed between calls: %s vs %s", first, second)
	}
}

func TestClassifyEmptyPayload(t *testing.T) {
	for _, p := range []Payload{
		{},
		{Mensagem: "   "},
		{Sender: "5549999@x.net", MessageID: "abc"},
	} {
		_, err := Classify(&p)
		if !errors.Is(err, ErrUnrecognizedPayload) {
			t.Errorf("Classify(%+v) error = %v, want ErrUnrecognizedPayload", p, err)
		}
	}
}

func TestValidateAudioEncoding(t *testing.T) {
	if err := ValidateAudioEncoding(""); err != nil {
		t.Errorf("empty audio should be valid, got %v", err)
	}
	if err := ValidateAudioEncoding("data:audio/ogg;base64,AAAA"); err != nil {
		t.Errorf("valid audio prefix rejected: %v", err)
	}
	if err := ValidateAudioEncoding("data:text/plain;base64,AAAA"); !errors.Is(err, ErrInvalidEncoding) {
		t.Errorf("expected ErrInvalidEncoding for text prefix, got %v", err)
	}
	if err := ValidateAudioEncoding("AAAA"); !errors.Is(err, ErrInvalidEncoding) {
		t.Errorf("expected ErrInvalidEncoding for raw base64, got %v", err)
	}
}

func TestValidateImageEncoding(t *testing.T) {
	if err := ValidateImageEncoding("data:image/jpeg;base64,AAAA"); err != nil {
		t.Errorf("valid image prefix rejected: %v", err)
	}
	if err := ValidateImageEncoding("data:text/plain;base64,AAAA"); !errors.Is(err, ErrInvalidEncoding) {
		t.Errorf("expected ErrInvalidEncoding for text prefix, got %v", err)
	}
}

func TestValidateMediaEncoding(t *testing.T) {
	if err := ValidateMediaEncoding("data:application/pdf;base64,AAAA"); err != nil {
		t.Errorf("valid media prefix rejected: %v", err)
	}
	if err := ValidateMediaEncoding("application/pdf"); !errors.Is(err, ErrInvalidEncoding) {
		t.Errorf("expected ErrInvalidEncoding for missing prefix, got %v", err)
	}
}

func TestDataURIMimeType(t *testing.T) {
	if got := DataURIMimeType("data:image/png;base64,AAAA", "image/jpeg"); got != "image/png" {
		t.Errorf("DataURIMimeType = %s, want image/png", got)
	}
	if got := DataURIMimeType("", "image/jpeg"); got != "image/jpeg" {
		t.Errorf("DataURIMimeType fallback = %s, want image/jpeg", got)
	}
}

func TestDecodedSize(t *testing.T) {
	// 8 base64 chars decode to 6 bytes
	if got := DecodedSize("data:image/png;base64,AAAAAAAA"); got != 6 {
		t.Errorf("DecodedSize = %d, want 6", got)
	}
	if got := DecodedSize("no comma here"); got != 0 {
		t.Errorf("DecodedSize without payload = %d, want 0", got)
	}
}
