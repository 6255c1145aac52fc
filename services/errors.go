package services

import (
	"errors"
	"fmt"
)

// Ingestion error classes. Callers branch on them with errors.Is.
var (
	ErrMalformedInput = errors.New("malformed payment confirmation")
	ErrOutOfStock     = errors.New("out of stock")
	ErrGateway        = errors.New("payment gateway failure")
	ErrStorage        = errors.New("storage failure")
	ErrOrderNotFound  = errors.New("order not found")
)

// OutOfStockError names the line that could not be fulfilled.
type OutOfStockError struct {
	ItemID      string
	Size        string
	ProductName string
	Requested   int
}

func (e *OutOfStockError) Error() string {
	name := e.ProductName
	if name == "" {
		name = e.ItemID
	}
	return fmt.Sprintf("out of stock: %s (item %s, size %s, requested %d)", name, e.ItemID, e.Size, e.Requested)
}

func (e *OutOfStockError) Is(target error) bool {
	return target == ErrOutOfStock
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedInput, fmt.Sprintf(format, args...))
}
