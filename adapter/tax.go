package adapter

import (
	"sort"
	"strings"

	"github.com/salestaxio/poskit/cache"
)

// taxRequestKey hashes a normalized copy of the request so that semantically
// identical requests share a cache entry. Items are sorted by SKU, address
// strings are trimmed and lowercased.
func taxRequestKey(integrationID string, req TaxRequest) (string, error) {
	normalized := TaxRequest{
		Items:             make([]LineItem, len(req.Items)),
		Address:           normalizeAddress(req.Address),
		CustomerTaxExempt: req.CustomerTaxExempt,
	}

	copy(normalized.Items, req.Items)
	for i := range normalized.Items {
		normalized.Items[i].SKU = strings.TrimSpace(normalized.Items[i].SKU)
		normalized.Items[i].TaxCode = strings.TrimSpace(normalized.Items[i].TaxCode)
	}
	sort.Slice(normalized.Items, func(i, j int) bool {
		a, b := normalized.Items[i], normalized.Items[j]
		if a.SKU != b.SKU {
			return a.SKU < b.SKU
		}
		return a.UnitPrice < b.UnitPrice
	})

	return cache.HashKey(cache.Key(integrationID, "tax"), normalized)
}

func normalizeAddress(addr Address) Address {
	clean := func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return Address{
		Line1:      clean(addr.Line1),
		City:       clean(addr.City),
		State:      clean(addr.State),
		PostalCode: clean(addr.PostalCode),
		Country:    clean(addr.Country),
	}
}
