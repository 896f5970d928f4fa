package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// ErrMalformedRow marks an eligible-order row that violates the read
// contract; assembly stops the run on it.
var ErrMalformedRow = NewDomainError("MALFORMED_ROW", "Order row violates the read contract")
