package postgres

import (
	"context"
	"testing"
	"time"

	"retail-insight/internal/domain/orders"

	"github.com/DATA-DOG/go-sqlmock"
)

var orderLineColumns = []string{
	"order_id", "product_name", "category_l1", "category_l3", "order_date",
	"scene", "time_slot", "channel", "unit_price", "unit_cost", "quantity",
	"monthly_sales", "stock", "delivery_fee", "platform_commission",
	"packaging_fee", "customer_paid_delivery", "subsidy", "address",
}

func TestOrderLineRepo_LoadOrderLines(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %s", err)
	}
	defer db.Close()

	repo := NewOrderLineRepo(db)
	ctx := context.Background()

	from := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(orderLineColumns).
		AddRow("o-1", "美式咖啡", "饮品", "咖啡", from,
			"早餐", "08:00-10:00", "美团", 12.0, 4.0, 2.0,
			300, 50, 5.0, 2.4, 0.5, 3.0, 1.0, "幸福路 1 号").
		AddRow("o-2", "可颂", "烘焙", "面包", from.AddDate(0, 0, 1),
			"早餐", "08:00-10:00", "饿了么", 8.0, 3.0, 1.0,
			120, 20, 4.0, 1.6, 0.5, 2.0, 0.0, "中山北路 2 号")

	mock.ExpectQuery("SELECT (.+) FROM order_lines").
		WithArgs(from, to).
		WillReturnRows(rows)

	lines, err := repo.LoadOrderLines(ctx, from, to)
	if err != nil {
		t.Fatalf("LoadOrderLines failed: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].OrderID != "o-1" || lines[0].ProductName != "美式咖啡" {
		t.Errorf("unexpected first line %s/%s", lines[0].OrderID, lines[0].ProductName)
	}
	if lines[0].UnitPrice != 12 || lines[0].Quantity != 2 {
		t.Errorf("unexpected price/qty %v/%v", lines[0].UnitPrice, lines[0].Quantity)
	}
	if lines[1].Address != "中山北路 2 号" {
		t.Errorf("unexpected address %s", lines[1].Address)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %s", err)
	}
}

func TestOrderLineRepo_InsertOrderLine(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %s", err)
	}
	defer db.Close()

	repo := NewOrderLineRepo(db)
	ctx := context.Background()

	line := orders.OrderLine{
		OrderID:     "o-1",
		ProductName: "美式咖啡",
		Date:        time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		UnitPrice:   12,
		UnitCost:    4,
		Quantity:    2,
		DeliveryFee: 5,
	}

	mock.ExpectExec("INSERT INTO order_lines").
		WithArgs(
			line.OrderID, line.ProductName, line.CategoryL1, line.CategoryL3, line.Date,
			line.Scene, line.TimeSlot, line.Channel, line.UnitPrice, line.UnitCost, line.Quantity,
			line.MonthlySales, line.Stock, line.DeliveryFee, line.PlatformCommission,
			line.PackagingFee, line.CustomerPaidDelivery, line.Subsidy, line.Address,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.InsertOrderLine(ctx, line); err != nil {
		t.Errorf("InsertOrderLine failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %s", err)
	}
}

func TestOrderLineRepo_DateRange(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %s", err)
	}
	defer db.Close()

	repo := NewOrderLineRepo(db)
	ctx := context.Background()

	from := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT MIN\(order_date\), MAX\(order_date\) FROM order_lines`).
		WillReturnRows(sqlmock.NewRows([]string{"min", "max"}).AddRow(from, to))

	gotFrom, gotTo, ok, err := repo.DateRange(ctx)
	if err != nil {
		t.Fatalf("DateRange failed: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true")
	}
	if !gotFrom.Equal(from) || !gotTo.Equal(to) {
		t.Errorf("unexpected range %s ~ %s", gotFrom, gotTo)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %s", err)
	}
}

func TestOrderLineRepo_DateRangeEmptyTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %s", err)
	}
	defer db.Close()

	repo := NewOrderLineRepo(db)

	mock.ExpectQuery(`SELECT MIN\(order_date\), MAX\(order_date\) FROM order_lines`).
		WillReturnRows(sqlmock.NewRows([]string{"min", "max"}).AddRow(nil, nil))

	_, _, ok, err := repo.DateRange(context.Background())
	if err != nil {
		t.Fatalf("DateRange failed: %v", err)
	}
	if ok {
		t.Error("empty table should report ok=false")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %s", err)
	}
}
