package repo

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"groupbuy-backend/internal/domain"
)

const packageColumns = `id,merchant_id,name,description,price,original_price,items_json,delivery_dates_json,region,image_url,is_active,sort_order,created_at,updated_at`

func scanPackage(s scanner) (*domain.Package, error) {
	var p domain.Package
	var items string
	var dates sql.NullString
	err := s.Scan(&p.ID, &p.MerchantID, &p.Name, &p.Description, &p.Price, &p.OriginalPrice, &items, &dates,
		&p.Region, &p.ImageURL, &p.Active, &p.SortOrder, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Items = domain.DecodePackageItems(items)
	p.DeliveryDates = domain.DecodeDeliveryDates(dates.String)
	return &p, nil
}

func scanPackages(rows *sql.Rows) ([]domain.Package, error) {
	defer rows.Close()
	out := []domain.Package{}
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, mapErr("scan package", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) GetPackage(ctx context.Context, id string) (*domain.Package, bool, error) {
	p, err := scanPackage(r.db.QueryRowContext(ctx, `SELECT `+packageColumns+` FROM packages WHERE id=$1`, id))
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, mapErr("get package", err)
	}
	return p, true, nil
}

func (r *PostgresRepo) ListActivePackagesByIDs(ctx context.Context, ids []string) ([]domain.Package, error) {
	if len(ids) == 0 {
		return []domain.Package{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+packageColumns+` FROM packages WHERE id = ANY($1) AND is_active`, pq.Array(ids))
	if err != nil {
		return nil, mapErr("list packages by id", err)
	}
	return scanPackages(rows)
}

func (r *PostgresRepo) ListPackages(ctx context.Context, activeOnly bool) ([]domain.Package, error) {
	q := `SELECT ` + packageColumns + ` FROM packages`
	if activeOnly {
		q += ` WHERE is_active`
	}
	rows, err := r.db.QueryContext(ctx, q+` ORDER BY is_active DESC, sort_order ASC, updated_at DESC`)
	if err != nil {
		return nil, mapErr("list packages", err)
	}
	return scanPackages(rows)
}

func (r *PostgresRepo) ListPackagesByMerchant(ctx context.Context, merchantID string, activeOnly bool) ([]domain.Package, error) {
	q := `SELECT ` + packageColumns + ` FROM packages WHERE merchant_id=$1`
	if activeOnly {
		q += ` AND is_active`
	}
	rows, err := r.db.QueryContext(ctx, q+` ORDER BY sort_order ASC, updated_at DESC LIMIT 100`, merchantID)
	if err != nil {
		return nil, mapErr("list merchant packages", err)
	}
	return scanPackages(rows)
}

func (r *PostgresRepo) PutPackage(ctx context.Context, p *domain.Package) error {
	var dates *string
	if len(p.DeliveryDates) > 0 {
		s := marshalJSON(p.DeliveryDates)
		dates = &s
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO packages (`+packageColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (id) DO UPDATE SET merchant_id=$2,name=$3,description=$4,price=$5,original_price=$6,items_json=$7,
		delivery_dates_json=$8,region=$9,image_url=$10,is_active=$11,sort_order=$12,updated_at=$14`,
		p.ID, p.MerchantID, p.Name, p.Description, p.Price, p.OriginalPrice, marshalJSON(p.Items), dates,
		p.Region, p.ImageURL, p.Active, p.SortOrder, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return mapErr("put package", err)
	}
	return nil
}

func (r *PostgresRepo) DeletePackage(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM packages WHERE id=$1`, id)
	if err != nil {
		return false, mapErr("delete package", err)
	}
	return affected(res)
}

const mappingColumns = `id,shopify_product_id,shopify_variant_id,english_name,chinese_name,created_at,updated_at`

func scanMapping(s scanner) (*domain.ProductNameMapping, error) {
	var m domain.ProductNameMapping
	if err := s.Scan(&m.ID, &m.ShopifyProductID, &m.ShopifyVariantID, &m.EnglishName, &m.ChineseName, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PostgresRepo) ListMappings(ctx context.Context) ([]domain.ProductNameMapping, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+mappingColumns+` FROM product_name_mappings ORDER BY english_name ASC`)
	if err != nil {
		return nil, mapErr("list mappings", err)
	}
	defer rows.Close()
	out := []domain.ProductNameMapping{}
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, mapErr("scan mapping", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) GetMapping(ctx context.Context, id string) (*domain.ProductNameMapping, bool, error) {
	m, err := scanMapping(r.db.QueryRowContext(ctx, `SELECT `+mappingColumns+` FROM product_name_mappings WHERE id=$1`, id))
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, mapErr("get mapping", err)
	}
	return m, true, nil
}

func (r *PostgresRepo) MappingsByProductIDs(ctx context.Context, productIDs []string) (map[string]domain.ProductNameMapping, error) {
	out := map[string]domain.ProductNameMapping{}
	if len(productIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+mappingColumns+` FROM product_name_mappings WHERE shopify_product_id = ANY($1)`, pq.Array(productIDs))
	if err != nil {
		return nil, mapErr("lookup mappings", err)
	}
	defer rows.Close()
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, mapErr("scan mapping", err)
		}
		out[m.ShopifyProductID] = *m
	}
	return out, rows.Err()
}

func (r *PostgresRepo) UpsertMapping(ctx context.Context, m *domain.ProductNameMapping) (*domain.ProductNameMapping, error) {
	saved, err := scanMapping(r.db.QueryRowContext(ctx, `INSERT INTO product_name_mappings (`+mappingColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (shopify_product_id) DO UPDATE SET shopify_variant_id=$3,english_name=$4,chinese_name=$5,updated_at=$7
		RETURNING `+mappingColumns,
		m.ID, m.ShopifyProductID, m.ShopifyVariantID, m.EnglishName, m.ChineseName, m.CreatedAt, m.UpdatedAt))
	if err != nil {
		return nil, mapErr("upsert mapping", err)
	}
	return saved, nil
}

func (r *PostgresRepo) UpdateMapping(ctx context.Context, m *domain.ProductNameMapping) error {
	_, err := r.db.ExecContext(ctx, `UPDATE product_name_mappings SET shopify_variant_id=$2,english_name=$3,chinese_name=$4,updated_at=$5 WHERE id=$1`,
		m.ID, m.ShopifyVariantID, m.EnglishName, m.ChineseName, m.UpdatedAt)
	if err != nil {
		return mapErr("update mapping", err)
	}
	return nil
}

func (r *PostgresRepo) DeleteMapping(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM product_name_mappings WHERE id=$1`, id)
	if err != nil {
		return false, mapErr("delete mapping", err)
	}
	return affected(res)
}
