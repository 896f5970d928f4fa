// Package report accumulates per-order failures across the pipeline and
// turns them into the end-of-run error report.
package report

// Category classifies why an order fell out of the pipeline.
type Category string

const (
	CategoryNotFoundInOMS   Category = "not_found_in_sc"
	CategoryItemMismatch    Category = "item_mismatch"
	CategoryUnexpectedError Category = "unexpected_error"
	CategoryAlreadyInvoiced Category = "already_invoiced"
	CategoryUnableToInvoice Category = "unable_to_invoice"
)

// Registry is an append-only accumulator of (partner code, PO number)
// pairs per failure category. It is confined to a single run and a single
// goroutine; introducing concurrency requires serializing access.
type Registry struct {
	entries map[Category]map[string][]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Category]map[string][]string)}
}

// Add records a PO number under the category's partner bucket.
func (r *Registry) Add(cat Category, partnerCode, poNumber string) {
	byPartner, ok := r.entries[cat]
	if !ok {
		byPartner = make(map[string][]string)
		r.entries[cat] = byPartner
	}
	byPartner[partnerCode] = append(byPartner[partnerCode], poNumber)
}

// ByCategory returns a copy of the partner→PO mapping for a category.
func (r *Registry) ByCategory(cat Category) map[string][]string {
	out := make(map[string][]string, len(r.entries[cat]))
	for partner, pos := range r.entries[cat] {
		out[partner] = append([]string(nil), pos...)
	}
	return out
}

// Count returns the number of recorded PO numbers in a category.
func (r *Registry) Count(cat Category) int {
	n := 0
	for _, pos := range r.entries[cat] {
		n += len(pos)
	}
	return n
}

// IsEmpty reports whether no failures were recorded at all.
func (r *Registry) IsEmpty() bool {
	for _, byPartner := range r.entries {
		for _, pos := range byPartner {
			if len(pos) > 0 {
				return false
			}
		}
	}
	return true
}

// BuildReport consumes the registry into the end-of-run report. The
// report carries the two partner-facing mappings; reconciliation
// categories roll up into UnableToInvoice so a single mail covers the
// whole run.
func (r *Registry) BuildReport() Report {
	unable := make(map[string][]string)
	for _, cat := range []Category{
		CategoryNotFoundInOMS,
		CategoryItemMismatch,
		CategoryUnexpectedError,
		CategoryUnableToInvoice,
	} {
		for partner, pos := range r.entries[cat] {
			unable[partner] = append(unable[partner], pos...)
		}
	}
	return Report{
		UnableToInvoice: unable,
		AlreadyInvoiced: r.ByCategory(CategoryAlreadyInvoiced),
	}
}
