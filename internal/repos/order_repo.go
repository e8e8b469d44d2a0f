package repos

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"apotek/internal/domain"
)

type OrderRepo struct {
	db        *sqlx.DB
	inventory *InventoryRepo
}

func NewOrderRepo(db *sqlx.DB) *OrderRepo {
	return &OrderRepo{db: db, inventory: NewInventoryRepo(db)}
}

// ---------- Admin list summary ----------
type OrderSummary struct {
	domain.Order
	CustomerName  string `db:"customer_name" json:"customer_name"`
	CustomerEmail string `db:"customer_email" json:"customer_email"`
	ItemCount     int    `db:"item_count" json:"item_count"`
}

type LineInput struct {
	ProductID string
	Qty       int
}

type NewOrder struct {
	UserID          string
	ShippingAddress string
	PaymentMethod   string
	DeliveryFee     int64
	Lines           []LineInput
}

const orderCols = `o.id, o.user_id, o.status, o.total_amount, o.shipping_address, o.payment_method, o.created_at, o.status_updated_at`

// Place creates the order, its item snapshots and the stock/sold updates in
// one transaction. Prices come from the products table, not the caller.
// check sees the grand total before anything is written; an error from it
// aborts the order.
func (r *OrderRepo) Place(ctx context.Context, in NewOrder, check func(grand int64) error) (domain.Order, []domain.OrderItem, error) {
	if len(in.Lines) == 0 {
		return domain.Order{}, nil, fmt.Errorf("order has no lines")
	}

	var (
		order domain.Order
		items []domain.OrderItem
	)
	err := InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		ids := make([]string, 0, len(in.Lines))
		for _, l := range in.Lines {
			ids = append(ids, l.ProductID)
		}
		query, args, err := sqlx.In(`SELECT id, name, price FROM products WHERE id IN (?)`, ids)
		if err != nil {
			return err
		}
		var rows []struct {
			ID    string `db:"id"`
			Name  string `db:"name"`
			Price int64  `db:"price"`
		}
		if err := sqlx.SelectContext(ctx, tx, &rows, tx.Rebind(query), args...); err != nil {
			return err
		}
		byID := make(map[string]int, len(rows))
		for i, p := range rows {
			byID[p.ID] = i
		}

		var subtotal int64
		order = domain.Order{
			ID:              uuid.NewString(),
			UserID:          in.UserID,
			Status:          domain.OrderPending,
			ShippingAddress: in.ShippingAddress,
			PaymentMethod:   in.PaymentMethod,
			CreatedAt:       domain.Now(),
		}
		order.StatusUpdatedAt = order.CreatedAt
		for _, l := range in.Lines {
			i, ok := byID[l.ProductID]
			if !ok {
				return fmt.Errorf("product %s: %w", l.ProductID, ErrNotFound)
			}
			if l.Qty <= 0 {
				return fmt.Errorf("invalid qty for product %s", l.ProductID)
			}
			it := domain.OrderItem{
				ID:          uuid.NewString(),
				OrderID:     order.ID,
				ProductID:   l.ProductID,
				ProductName: rows[i].Name,
				Price:       rows[i].Price,
				Quantity:    l.Qty,
			}
			subtotal += it.Subtotal()
			items = append(items, it)
		}
		order.TotalAmount = subtotal + in.DeliveryFee
		if check != nil {
			if err := check(order.TotalAmount); err != nil {
				return err
			}
		}

		if _, err := tx.NamedExecContext(ctx, `
		  INSERT INTO orders(id, user_id, status, total_amount, shipping_address, payment_method, created_at, status_updated_at)
		  VALUES(:id, :user_id, :status, :total_amount, :shipping_address, :payment_method, :created_at, :status_updated_at)`, order); err != nil {
			return err
		}
		for _, it := range items {
			if _, err := tx.NamedExecContext(ctx, `
			  INSERT INTO order_items(id, order_id, product_id, product_name, price, quantity)
			  VALUES(:id, :order_id, :product_id, :product_name, :price, :quantity)`, it); err != nil {
				return err
			}
			if err := r.inventory.Decrement(ctx, tx, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, nil, err
	}
	return order, items, nil
}

// ---------- Used by order page/admin ----------

func (r *OrderRepo) Get(ctx context.Context, orderID string) (domain.Order, []domain.OrderItem, error) {
	var o domain.Order
	if err := sqlx.GetContext(ctx, r.db, &o, `SELECT `+orderCols+` FROM orders o WHERE o.id = ?`, orderID); err != nil {
		return domain.Order{}, nil, notFound(err)
	}

	items := []domain.OrderItem{}
	if err := sqlx.SelectContext(ctx, r.db, &items, `
		SELECT id, order_id, product_id, product_name, price, quantity
		FROM order_items
		WHERE order_id = ?
		ORDER BY product_name
	`, orderID); err != nil {
		return domain.Order{}, nil, err
	}
	return o, items, nil
}

// List returns the newest orders, optionally only those in one status.
func (r *OrderRepo) List(ctx context.Context, status domain.OrderStatus, limit int) ([]OrderSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	where, args := `1 = 1`, []any{}
	if status != "" {
		cond, cargs, err := statusIs(`o.status`, status)
		if err != nil {
			return nil, err
		}
		where += ` AND ` + cond
		args = append(args, cargs...)
	}
	args = append(args, limit)

	out := []OrderSummary{}
	err := sqlx.SelectContext(ctx, r.db, &out, `
		SELECT `+orderCols+`, u.name AS customer_name, u.email AS customer_email,
		       (SELECT COALESCE(SUM(quantity),0) FROM order_items oi WHERE oi.order_id = o.id) AS item_count
		FROM orders o
		JOIN users u ON u.id = o.user_id
		WHERE `+where+`
		ORDER BY o.created_at DESC
		LIMIT ?
	`, args...)
	return out, err
}

func (r *OrderRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	out := []domain.Order{}
	err := sqlx.SelectContext(ctx, r.db, &out, `
		SELECT `+orderCols+`
		FROM orders o
		WHERE o.user_id = ?
		ORDER BY o.created_at DESC
	`, userID)
	return out, err
}

// UpdateStatus moves an order from one status to another. It fails with
// ErrStale when the stored status no longer reads as from.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) (domain.Order, error) {
	cond, cargs, err := statusIs(`status`, from)
	if err != nil {
		return domain.Order{}, err
	}
	args := append([]any{to, domain.Now(), id}, cargs...)
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = ?, status_updated_at = ?
		WHERE id = ? AND `+cond, args...)
	if err = affected(res, err); errors.Is(err, ErrNotFound) {
		if _, _, gerr := r.Get(ctx, id); gerr != nil {
			return domain.Order{}, gerr
		}
		return domain.Order{}, ErrStale
	} else if err != nil {
		return domain.Order{}, err
	}
	o, _, err := r.Get(ctx, id)
	return o, err
}

func (r *OrderRepo) CountByStatus(ctx context.Context, status domain.OrderStatus) (int, error) {
	cond, args, err := statusIs(`status`, status)
	if err != nil {
		return 0, err
	}
	var n int
	err = sqlx.GetContext(ctx, r.db, &n, `SELECT COUNT(*) FROM orders WHERE `+cond, args...)
	return n, err
}

// Revenue sums totals of orders that have left the pharmacy.
func (r *OrderRepo) Revenue(ctx context.Context) (int64, error) {
	shipped, sargs, err := statusIs(`status`, domain.OrderShipped)
	if err != nil {
		return 0, err
	}
	delivered, dargs, err := statusIs(`status`, domain.OrderDelivered)
	if err != nil {
		return 0, err
	}
	var n int64
	err = sqlx.GetContext(ctx, r.db, &n, `
		SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE (`+shipped+`) OR (`+delivered+`)
	`, append(sargs, dargs...)...)
	return n, err
}

type DayRevenue struct {
	Day    string `db:"day" json:"day"`
	Total  int64  `db:"total" json:"total"`
	Orders int    `db:"orders" json:"orders"`
}

// DailyRevenue groups non-cancelled orders created at or after since by day.
func (r *OrderRepo) DailyRevenue(ctx context.Context, since string) ([]DayRevenue, error) {
	cancelled, cargs, err := statusIs(`status`, domain.OrderCancelled)
	if err != nil {
		return nil, err
	}
	out := []DayRevenue{}
	err = sqlx.SelectContext(ctx, r.db, &out, `
		SELECT substr(created_at, 1, 10) AS day, SUM(total_amount) AS total, COUNT(*) AS orders
		FROM orders
		WHERE created_at >= ? AND NOT (`+cancelled+`)
		GROUP BY day
		ORDER BY day
	`, append([]any{since}, cargs...)...)
	return out, err
}
