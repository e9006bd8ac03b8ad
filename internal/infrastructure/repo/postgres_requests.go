package repo

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"groupbuy-backend/internal/domain"
)

const requestColumns = `id,service_type,title,description,address,preferred_time,reference_image,status,user_name,user_phone,user_id,access_token,selected_quote_id,created_at,updated_at`

func scanRequest(s scanner) (*domain.ServiceRequest, error) {
	var r domain.ServiceRequest
	err := s.Scan(&r.ID, &r.ServiceType, &r.Title, &r.Description, &r.Address, &r.PreferredTime, &r.ReferenceImageRef,
		(*string)(&r.Status), &r.UserName, &r.UserPhone, &r.UserID, &r.AccessToken, &r.SelectedQuoteID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *PostgresRepo) CreateServiceRequest(ctx context.Context, sr *domain.ServiceRequest) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO service_requests (`+requestColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		sr.ID, sr.ServiceType, sr.Title, sr.Description, sr.Address, sr.PreferredTime, sr.ReferenceImageRef,
		string(sr.Status), sr.UserName, sr.UserPhone, sr.UserID, sr.AccessToken, sr.SelectedQuoteID, sr.CreatedAt, sr.UpdatedAt)
	if err != nil {
		return mapErr("create service request", err)
	}
	return nil
}

func (r *PostgresRepo) GetServiceRequest(ctx context.Context, id string) (*domain.ServiceRequest, bool, error) {
	sr, err := scanRequest(r.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM service_requests WHERE id=$1`, id))
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, mapErr("get service request", err)
	}
	return sr, true, nil
}

func (r *PostgresRepo) ListOpenServiceRequests(ctx context.Context, limit int) ([]domain.ServiceRequest, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+requestColumns+` FROM service_requests WHERE status='open' ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, mapErr("list service requests", err)
	}
	defer rows.Close()
	out := []domain.ServiceRequest{}
	for rows.Next() {
		sr, err := scanRequest(rows)
		if err != nil {
			return nil, mapErr("scan service request", err)
		}
		out = append(out, *sr)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListServiceRequestsFor(ctx context.Context, userID, phone string, limit int) ([]domain.ServiceRequest, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+requestColumns+` FROM service_requests
		WHERE (user_id=$1 AND $1<>'') OR (user_phone=$2 AND $2<>'') ORDER BY created_at DESC LIMIT $3`, userID, phone, limit)
	if err != nil {
		return nil, mapErr("list service requests for user", err)
	}
	defer rows.Close()
	out := []domain.ServiceRequest{}
	for rows.Next() {
		sr, err := scanRequest(rows)
		if err != nil {
			return nil, mapErr("scan service request", err)
		}
		out = append(out, *sr)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) SelectQuote(ctx context.Context, requestID, quoteID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE service_requests SET status='selected', selected_quote_id=$2, updated_at=now()
		WHERE id=$1 AND (status='open' OR selected_quote_id=$2)
		AND EXISTS (SELECT 1 FROM merchant_quotes q WHERE q.id=$2 AND q.service_request_id=$1)`, requestID, quoteID)
	if err != nil {
		return false, mapErr("select quote", err)
	}
	return affected(res)
}

const quoteColumns = `id,service_request_id,merchant_id,price,details,contact_info,created_at,updated_at`

func scanQuote(s scanner) (*domain.MerchantQuote, error) {
	var q domain.MerchantQuote
	if err := s.Scan(&q.ID, &q.ServiceRequestID, &q.MerchantID, &q.Price, &q.Details, &q.ContactInfo, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *PostgresRepo) UpsertQuote(ctx context.Context, q *domain.MerchantQuote) (*domain.MerchantQuote, error) {
	saved, err := scanQuote(r.db.QueryRowContext(ctx, `INSERT INTO merchant_quotes (`+quoteColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (service_request_id, merchant_id) DO UPDATE SET price=$4,details=$5,contact_info=$6,updated_at=$8
		RETURNING `+quoteColumns,
		q.ID, q.ServiceRequestID, q.MerchantID, q.Price, q.Details, q.ContactInfo, q.CreatedAt, q.UpdatedAt))
	if err != nil {
		return nil, mapErr("upsert quote", err)
	}
	return saved, nil
}

func (r *PostgresRepo) GetQuote(ctx context.Context, id string) (*domain.MerchantQuote, bool, error) {
	q, err := scanQuote(r.db.QueryRowContext(ctx, `SELECT `+quoteColumns+` FROM merchant_quotes WHERE id=$1`, id))
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, mapErr("get quote", err)
	}
	return q, true, nil
}

func (r *PostgresRepo) GetMerchantQuote(ctx context.Context, requestID, merchantID string) (*domain.MerchantQuote, bool, error) {
	q, err := scanQuote(r.db.QueryRowContext(ctx, `SELECT `+quoteColumns+` FROM merchant_quotes WHERE service_request_id=$1 AND merchant_id=$2`, requestID, merchantID))
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, mapErr("get merchant quote", err)
	}
	return q, true, nil
}

func (r *PostgresRepo) ListQuotes(ctx context.Context, requestID string) ([]domain.MerchantQuote, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT q.id,q.service_request_id,q.merchant_id,q.price,q.details,q.contact_info,q.created_at,q.updated_at,m.name
		FROM merchant_quotes q JOIN merchants m ON m.id=q.merchant_id
		WHERE q.service_request_id=$1 ORDER BY q.created_at DESC`, requestID)
	if err != nil {
		return nil, mapErr("list quotes", err)
	}
	defer rows.Close()
	out := []domain.MerchantQuote{}
	for rows.Next() {
		var q domain.MerchantQuote
		if err := rows.Scan(&q.ID, &q.ServiceRequestID, &q.MerchantID, &q.Price, &q.Details, &q.ContactInfo, &q.CreatedAt, &q.UpdatedAt, &q.MerchantName); err != nil {
			return nil, mapErr("scan quote", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) QuotedRequestIDs(ctx context.Context, merchantID string, requestIDs []string) (map[string]bool, error) {
	out := map[string]bool{}
	if len(requestIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT service_request_id FROM merchant_quotes WHERE merchant_id=$1 AND service_request_id = ANY($2)`,
		merchantID, pq.Array(requestIDs))
	if err != nil {
		return nil, mapErr("quoted requests", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapErr("scan quoted request", err)
		}
		out[id] = true
	}
	return out, rows.Err()
}
