package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dumall/reconcile/internal/core/domain"
)

// MySQLArchive keeps a durable copy of completed orders. The store-backed
// ledger remains the source of truth; archive failures are logged by the
// caller and never roll a purchase back.
type MySQLArchive struct {
	db *sql.DB
}

func NewMySQLArchive(db *sql.DB) *MySQLArchive {
	return &MySQLArchive{db: db}
}

func (m *MySQLArchive) SaveOrder(ctx context.Context, order domain.Order) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, total_amount, payment_method, status, created_at, payment_completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.UserID, order.TotalAmount.StringFixed(2), order.PaymentMethod,
		string(order.Status), order.CreatedAt, order.PaymentCompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, name, price, quantity)
			VALUES (?, ?, ?, ?)`,
			order.ID, item.Name, item.Price.StringFixed(2), item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return tx.Commit()
}

func (m *MySQLArchive) CountForUser(ctx context.Context, userID int64) (int, error) {
	var n int
	err := m.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE user_id = ?`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}
