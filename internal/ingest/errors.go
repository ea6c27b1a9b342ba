package ingest

import "errors"

// Validation errors are detected before any persistence attempt and map to
// HTTP 400 at the transport layer. Anything else coming out of the store is
// a server-side failure.
var (
	ErrMissingSender        = errors.New("remetente é obrigatório")
	ErrMissingRequiredField = errors.New("campos obrigatórios ausentes")
	ErrInvalidEncoding      = errors.New("formato base64 inválido")
	ErrPayloadTooLarge      = errors.New("conteúdo excede o tamanho máximo")
	ErrUnrecognizedPayload  = errors.New("nenhum tipo de mensagem válido encontrado no payload")
)

// IsValidationError reports whether err belongs to the pre-persistence
// validation taxonomy.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingSender) ||
		errors.Is(err, ErrMissingRequiredField) ||
		errors.Is(err, ErrInvalidEncoding) ||
		errors.Is(err, ErrPayloadTooLarge) ||
		errors.Is(err, ErrUnrecognizedPayload)
}
