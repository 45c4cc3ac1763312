package nft

import "strings"

// TransferEvent is a normalized on-chain Transfer log for a watched
// collection contract. From is the address that gave the token up, i.e.
// the prospective seller.
type TransferEvent struct {
	BlockNumber uint64
	TxHash      string
	Contract    string
	TokenID     string
	From        string
	To          string
}

// NameEvent is a normalized on-chain naming log (the collection lets
// owners attach a display name to a token).
type NameEvent struct {
	BlockNumber uint64
	TxHash      string
	Contract    string
	TokenID     string
	Name        string
}

func Normalize(t *TransferEvent) *TransferEvent {
	t.TxHash = strings.ToLower(t.TxHash)
	t.Contract = strings.ToLower(t.Contract)
	t.From = strings.ToLower(t.From)
	t.To = strings.ToLower(t.To)
	return t
}

// ShortAddress truncates a hex address for display ("0x1234…cdef").
func ShortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
