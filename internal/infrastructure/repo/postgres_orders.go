package repo

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"groupbuy-backend/internal/domain"
)

const orderColumns = `id,customer_name,phone,address,delivery_time,items_json,package_id,region,payment_method,payment_proof,optional_note,internal_status,shopify_order_id,user_id,created_at,updated_at`

func scanOrder(s scanner) (*domain.Order, error) {
	var o domain.Order
	var items string
	err := s.Scan(&o.ID, &o.CustomerName, &o.Phone, &o.Address, &o.DeliveryTime, &items, &o.PackageID, &o.Region,
		(*string)(&o.PaymentMethod), &o.PaymentProofRef, &o.Note, (*string)(&o.Status), &o.ExternalOrderID, &o.UserID,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Items = domain.DecodeLineItems(items)
	return &o, nil
}

func (r *PostgresRepo) CreateOrder(ctx context.Context, o *domain.Order) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO orders (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		o.ID, o.CustomerName, o.Phone, o.Address, o.DeliveryTime, marshalJSON(o.Items), o.PackageID, o.Region,
		string(o.PaymentMethod), o.PaymentProofRef, o.Note, string(o.Status), o.ExternalOrderID, o.UserID,
		o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return mapErr("create order", err)
	}
	return nil
}

func (r *PostgresRepo) GetOrder(ctx context.Context, id string) (*domain.Order, bool, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, mapErr("get order", err)
	}
	return o, true, nil
}

func (r *PostgresRepo) UpdatePayment(ctx context.Context, id string, method domain.PaymentMethod, proofRef *string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE orders SET payment_method=$2, payment_proof=$3, updated_at=now() WHERE id=$1`,
		id, string(method), proofRef)
	if err != nil {
		return mapErr("update payment", err)
	}
	return nil
}

func (r *PostgresRepo) SetExternalOrderID(ctx context.Context, id, externalID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE orders SET shopify_order_id=$2, updated_at=now() WHERE id=$1`, id, externalID)
	if err != nil {
		return mapErr("set external order id", err)
	}
	return nil
}

func (r *PostgresRepo) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE orders SET internal_status=$2, updated_at=now() WHERE id=$1 AND internal_status=$3`,
		id, string(to), string(from))
	if err != nil {
		return false, mapErr("update status", err)
	}
	return affected(res)
}

func (r *PostgresRepo) DeleteOrder(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return false, mapErr("delete order", err)
	}
	return affected(res)
}

func orderWhere(f domain.OrderFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}
	if f.Status != "" {
		add("internal_status = ?", string(f.Status))
	}
	if f.Phone != "" {
		add("phone LIKE ?", "%"+escapeLike(f.Phone)+"%")
	}
	if f.Region != "" {
		add("region = ?", f.Region)
	}
	if f.DeliveryDate != "" {
		add("delivery_time LIKE ?", "%"+escapeLike(f.DeliveryDate)+"%")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *PostgresRepo) ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.Order, int, error) {
	where, args := orderWhere(f)
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, mapErr("count orders", err)
	}
	n := len(args)
	q := `SELECT ` + orderColumns + ` FROM orders` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	rows, err := r.db.QueryContext(ctx, q, append(args, f.Limit, (f.Page-1)*f.Limit)...)
	if err != nil {
		return nil, 0, mapErr("list orders", err)
	}
	defer rows.Close()
	out := make([]domain.Order, 0, f.Limit)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, mapErr("scan order", err)
		}
		out = append(out, *o)
	}
	return out, total, rows.Err()
}

func (r *PostgresRepo) ListOrdersForUser(ctx context.Context, userID, phone string, limit int) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE (user_id=$1 AND $1<>'') OR (phone=$2 AND $2<>'') ORDER BY created_at DESC LIMIT $3`, userID, phone, limit)
	if err != nil {
		return nil, mapErr("list orders for user", err)
	}
	defer rows.Close()
	out := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, mapErr("scan order", err)
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}
