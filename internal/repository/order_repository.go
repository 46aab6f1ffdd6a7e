package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/online-cinema/internal/database"
	"github.com/iliyamo/online-cinema/internal/model"
)

// OrderRepo owns orders, order_items and payments.
type OrderRepo struct{ db *sql.DB }

func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// HasPaidMovie reports whether the user already bought the movie.
func (r *OrderRepo) HasPaidMovie(ctx context.Context, userID, movieID uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM order_items oi JOIN orders o ON o.id=oi.order_id
		 WHERE o.user_id=? AND o.status='paid' AND oi.movie_id=? LIMIT 1`,
		userID, movieID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateOrder opens a pending single-movie order, freezing the movie price
// into the order item. Order and item are written in one transaction.
func (r *OrderRepo) CreateOrder(ctx context.Context, userID, movieID uint64, price string) (uint64, error) {
	var orderID uint64
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO orders (user_id, status, total_amount) VALUES (?,'pending',?)",
			userID, price)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		orderID = uint64(id)
		_, err = tx.ExecContext(ctx,
			"INSERT INTO order_items (order_id, movie_id, price_at_order) VALUES (?,?,?)",
			orderID, movieID, price)
		return err
	})
	if err != nil {
		return 0, err
	}
	return orderID, nil
}

// GetOrder loads an order with its items and joined movie names.
func (r *OrderRepo) GetOrder(ctx context.Context, orderID uint64) (*model.Order, error) {
	var o model.Order
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, status, total_amount, created_at FROM orders WHERE id=? LIMIT 1",
		orderID).Scan(&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	items, err := r.itemsFor(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func (r *OrderRepo) itemsFor(ctx context.Context, orderID uint64) ([]model.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT oi.id, oi.order_id, oi.movie_id, m.name, oi.price_at_order
		 FROM order_items oi JOIN movies m ON m.id=oi.movie_id WHERE oi.order_id=?`,
		orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MovieID, &it.MovieName, &it.PriceAtOrder); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListOrders returns a page of the user's orders, newest first, with items.
func (r *OrderRepo) ListOrders(ctx context.Context, userID uint64, page, perPage int) ([]model.Order, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM orders WHERE user_id=?", userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return nil, 0, nil
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, status, total_amount, created_at FROM orders WHERE user_id=? ORDER BY id DESC LIMIT ? OFFSET ?",
		userID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.CreatedAt); err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range orders {
		items, err := r.itemsFor(ctx, orders[i].ID)
		if err != nil {
			return nil, 0, err
		}
		orders[i].Items = items
	}
	return orders, total, nil
}

// MarkPaid flips a pending order to paid and records the payment row in one
// transaction. Idempotent: an order already paid (a replayed webhook) is a
// no-op, so no duplicate payment rows appear.
func (r *OrderRepo) MarkPaid(ctx context.Context, orderID uint64, externalPaymentID string) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var userID uint64
		var status, amount string
		err := tx.QueryRowContext(ctx,
			"SELECT user_id, status, total_amount FROM orders WHERE id=? FOR UPDATE",
			orderID).Scan(&userID, &status, &amount)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		if status == model.OrderPaid {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE orders SET status='paid' WHERE id=?", orderID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO payments (user_id, order_id, amount, status, external_payment_id) VALUES (?,?,?,'successful',?)",
			userID, orderID, amount, externalPaymentID)
		return err
	})
}
