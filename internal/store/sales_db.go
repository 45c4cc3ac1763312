package store

import (
	"context"
	"database/sql"

	"github.com/tokenfeed/salesbot/internal/db"
)

// AnnouncedSale is one row of announcement history. Price fields are kept
// as text so no precision is lost round-tripping through SQLite.
type AnnouncedSale struct {
	TxHash      string `json:"tx_hash"`
	TokenID     string `json:"token_id"`
	Buyer       string `json:"buyer"`
	Seller      string `json:"seller"`
	Price       string `json:"price"`
	Currency    string `json:"currency"`
	UsdPrice    string `json:"usd_price"`
	Marketplace string `json:"marketplace"`
	AnnouncedAt int64  `json:"announced_at"`
}

func (a *AnnouncedSale) ScanRow(scanner db.RowScanner) error {
	return scanner.Scan(
		&a.TxHash, &a.TokenID, &a.Buyer, &a.Seller,
		&a.Price, &a.Currency, &a.UsdPrice, &a.Marketplace, &a.AnnouncedAt,
	)
}

// SalesDb records which sales were already announced. It backs both the
// double-announce guard and the recent-announcements RPC endpoint.
type SalesDb interface {
	WasAnnounced(rq db.QueryRunner, txHash string) (bool, error)
	RecordAnnouncement(ctx context.Context, sqlite *sql.DB, sale AnnouncedSale) error
	GetRecent(rq db.QueryRunner, pageSize, page int) (total int, sales []*AnnouncedSale, err error)
}

func NewSalesDb() SalesDb {
	return &SalesDbImpl{}
}

type SalesDbImpl struct{}

func (s *SalesDbImpl) WasAnnounced(rq db.QueryRunner, txHash string) (bool, error) {
	var count int
	err := rq.QueryRow(`SELECT COUNT(*) FROM announced_sales WHERE tx_hash = ?`, txHash).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *SalesDbImpl) RecordAnnouncement(ctx context.Context, sqlite *sql.DB, sale AnnouncedSale) error {
	_, err := db.TxRunner(ctx, sqlite, func(tx *sql.Tx) (struct{}, error) {
		_, err := tx.Exec(`
			INSERT OR IGNORE INTO announced_sales (
				tx_hash, token_id, buyer, seller, price, currency, usd_price, marketplace, announced_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sale.TxHash, sale.TokenID, sale.Buyer, sale.Seller,
			sale.Price, sale.Currency, sale.UsdPrice, sale.Marketplace, sale.AnnouncedAt)
		return struct{}{}, err
	})
	return err
}

func (s *SalesDbImpl) GetRecent(rq db.QueryRunner, pageSize, page int) (int, []*AnnouncedSale, error) {
	return db.GetPaginatedResponseForQuery(
		"announced_sales",
		rq,
		`SELECT tx_hash, token_id, buyer, seller, price, currency, usd_price, marketplace, announced_at
		 FROM announced_sales`,
		db.QueryOptions{PageSize: pageSize, Page: page, Direction: db.QueryDirectionDesc},
		[]string{"announced_at"},
		nil,
		func() *AnnouncedSale { return &AnnouncedSale{} },
	)
}
