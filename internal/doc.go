// Package internal holds small helpers shared by the engine and its stores:
// session identifier generation and best-effort device classification.
//
// Nothing here is security-relevant beyond the entropy of [NewSessionID]; the device
// label produced by [Classify] is diagnostic only and never feeds an access decision.
package internal
