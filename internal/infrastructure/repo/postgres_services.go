package repo

import (
	"context"
	"database/sql"

	"groupbuy-backend/internal/domain"
)

const serviceColumns = `id,merchant_id,name,description,price,duration_mins,time_slots_json,image_url,is_active,sort_order,created_at,updated_at`

func scanService(s scanner) (*domain.Service, error) {
	var sv domain.Service
	var slots sql.NullString
	err := s.Scan(&sv.ID, &sv.MerchantID, &sv.Name, &sv.Description, &sv.Price, &sv.DurationMins, &slots,
		&sv.ImageURL, &sv.Active, &sv.SortOrder, &sv.CreatedAt, &sv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sv.TimeSlots = domain.DecodeTimeSlots(slots.String)
	return &sv, nil
}

func (r *PostgresRepo) queryServices(ctx context.Context, op, q string, args ...any) ([]domain.Service, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer rows.Close()
	out := []domain.Service{}
	for rows.Next() {
		sv, err := scanService(rows)
		if err != nil {
			return nil, mapErr("scan service", err)
		}
		out = append(out, *sv)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) PutService(ctx context.Context, sv *domain.Service) error {
	var slots *string
	if len(sv.TimeSlots) > 0 {
		s := marshalJSON(sv.TimeSlots)
		slots = &s
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO services (`+serviceColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (id) DO UPDATE SET merchant_id=$2,name=$3,description=$4,price=$5,duration_mins=$6,
		time_slots_json=$7,image_url=$8,is_active=$9,sort_order=$10,updated_at=$12`,
		sv.ID, sv.MerchantID, sv.Name, sv.Description, sv.Price, sv.DurationMins, slots,
		sv.ImageURL, sv.Active, sv.SortOrder, sv.CreatedAt, sv.UpdatedAt)
	if err != nil {
		return mapErr("put service", err)
	}
	return nil
}

func (r *PostgresRepo) GetService(ctx context.Context, id string) (*domain.Service, bool, error) {
	sv, err := scanService(r.db.QueryRowContext(ctx, `SELECT `+serviceColumns+` FROM services WHERE id=$1`, id))
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, mapErr("get service", err)
	}
	return sv, true, nil
}

func (r *PostgresRepo) ListServices(ctx context.Context, activeOnly bool) ([]domain.Service, error) {
	q := `SELECT ` + serviceColumns + ` FROM services`
	if activeOnly {
		q += ` WHERE is_active`
	}
	return r.queryServices(ctx, "list services", q+` ORDER BY sort_order ASC, updated_at DESC`)
}

func (r *PostgresRepo) ListServicesByMerchant(ctx context.Context, merchantID string, activeOnly bool) ([]domain.Service, error) {
	q := `SELECT ` + serviceColumns + ` FROM services WHERE merchant_id=$1`
	if activeOnly {
		q += ` AND is_active`
	}
	return r.queryServices(ctx, "list merchant services", q+` ORDER BY sort_order ASC, updated_at DESC LIMIT 100`, merchantID)
}

func (r *PostgresRepo) DeleteService(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM services WHERE id=$1`, id)
	if err != nil {
		return false, mapErr("delete service", err)
	}
	return affected(res)
}

const bookingColumns = `id,service_id,customer_name,phone,preferred_time,optional_note,reference_image,status,user_id,created_at,updated_at`

func (r *PostgresRepo) CreateBooking(ctx context.Context, b *domain.ServiceBooking) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO service_bookings (`+bookingColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		b.ID, b.ServiceID, b.CustomerName, b.Phone, b.PreferredTime, b.Note, b.ReferenceImageRef,
		b.Status, b.UserID, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return mapErr("create booking", err)
	}
	return nil
}

const bookingSelect = `SELECT b.id,b.service_id,b.customer_name,b.phone,b.preferred_time,b.optional_note,b.reference_image,
	b.status,b.user_id,b.created_at,b.updated_at,s.name FROM service_bookings b JOIN services s ON s.id=b.service_id`

func scanBooking(s scanner) (*domain.ServiceBooking, error) {
	var b domain.ServiceBooking
	err := s.Scan(&b.ID, &b.ServiceID, &b.CustomerName, &b.Phone, &b.PreferredTime, &b.Note, &b.ReferenceImageRef,
		&b.Status, &b.UserID, &b.CreatedAt, &b.UpdatedAt, &b.ServiceName)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PostgresRepo) GetBooking(ctx context.Context, id string) (*domain.ServiceBooking, bool, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, bookingSelect+` WHERE b.id=$1`, id))
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, mapErr("get booking", err)
	}
	return b, true, nil
}

func (r *PostgresRepo) ListBookingsFor(ctx context.Context, userID, phone string, limit int) ([]domain.ServiceBooking, error) {
	rows, err := r.db.QueryContext(ctx, bookingSelect+`
		WHERE (b.user_id=$1 AND $1<>'') OR (b.phone=$2 AND $2<>'') ORDER BY b.created_at DESC LIMIT $3`, userID, phone, limit)
	if err != nil {
		return nil, mapErr("list bookings", err)
	}
	defer rows.Close()
	out := []domain.ServiceBooking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, mapErr("scan booking", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}
