package domain

import "errors"

// Errores sentinel del broker. Los adapters los devuelven para que el
// executor distinga branches testeables sin inspeccionar strings.
var (
	ErrContractNotFound   = errors.New("contract not found")
	ErrBrokerDisconnected = errors.New("broker disconnected")
)
