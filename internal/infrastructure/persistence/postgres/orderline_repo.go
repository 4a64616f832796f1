package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"retail-insight/internal/domain/orders"
)

// OrderLineRepo 提供 order_lines 表的資料存取。
// 外部正規化 ETL 把清洗後的訂單明細落到這張表，服務端只讀取快照。
type OrderLineRepo struct {
	db *sql.DB
}

// NewOrderLineRepo 建立訂單明細資料存取實例。
func NewOrderLineRepo(db *sql.DB) *OrderLineRepo {
	return &OrderLineRepo{db: db}
}

// LoadOrderLines 依日期範圍（含端點）載入訂單明細，依（日期、訂單號、商品名）排序。
func (r *OrderLineRepo) LoadOrderLines(ctx context.Context, from, to time.Time) ([]orders.OrderLine, error) {
	const q = `
SELECT order_id, product_name, category_l1, category_l3, order_date,
       scene, time_slot, channel, unit_price, unit_cost, quantity,
       monthly_sales, stock, delivery_fee, platform_commission,
       packaging_fee, customer_paid_delivery, subsidy, COALESCE(address, '')
FROM order_lines
WHERE order_date >= $1 AND order_date <= $2
ORDER BY order_date, order_id, product_name;
`
	rows, err := r.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	var out []orders.OrderLine
	for rows.Next() {
		var l orders.OrderLine
		if err := rows.Scan(
			&l.OrderID, &l.ProductName, &l.CategoryL1, &l.CategoryL3, &l.Date,
			&l.Scene, &l.TimeSlot, &l.Channel, &l.UnitPrice, &l.UnitCost, &l.Quantity,
			&l.MonthlySales, &l.Stock, &l.DeliveryFee, &l.PlatformCommission,
			&l.PackagingFee, &l.CustomerPaidDelivery, &l.Subsidy, &l.Address,
		); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// InsertOrderLine 寫入或更新單筆明細，以（訂單號、商品名）為唯一鍵。
func (r *OrderLineRepo) InsertOrderLine(ctx context.Context, l orders.OrderLine) error {
	const q = `
INSERT INTO order_lines (order_id, product_name, category_l1, category_l3, order_date,
                         scene, time_slot, channel, unit_price, unit_cost, quantity,
                         monthly_sales, stock, delivery_fee, platform_commission,
                         packaging_fee, customer_paid_delivery, subsidy, address)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
ON CONFLICT (order_id, product_name)
DO UPDATE SET unit_price = EXCLUDED.unit_price,
              unit_cost = EXCLUDED.unit_cost,
              quantity = EXCLUDED.quantity,
              stock = EXCLUDED.stock,
              updated_at = NOW();
`
	_, err := r.db.ExecContext(ctx, q,
		l.OrderID, l.ProductName, l.CategoryL1, l.CategoryL3, l.Date,
		l.Scene, l.TimeSlot, l.Channel, l.UnitPrice, l.UnitCost, l.Quantity,
		l.MonthlySales, l.Stock, l.DeliveryFee, l.PlatformCommission,
		l.PackagingFee, l.CustomerPaidDelivery, l.Subsidy, l.Address,
	)
	return err
}

// DateRange 回傳表內訂單日期的最小與最大值；表為空時 ok=false。
func (r *OrderLineRepo) DateRange(ctx context.Context) (from, to time.Time, ok bool, err error) {
	const q = `SELECT MIN(order_date), MAX(order_date) FROM order_lines;`
	var minD, maxD sql.NullTime
	if err := r.db.QueryRowContext(ctx, q).Scan(&minD, &maxD); err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("query date range: %w", err)
	}
	if !minD.Valid || !maxD.Valid {
		return time.Time{}, time.Time{}, false, nil
	}
	return minD.Time, maxD.Time, true, nil
}
