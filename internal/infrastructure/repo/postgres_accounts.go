package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"groupbuy-backend/internal/domain"
)

const userColumns = `id,phone,email,password_hash,role,created_at,updated_at`

func scanUser(s scanner) (*domain.User, error) {
	var u domain.User
	if err := s.Scan(&u.ID, &u.Phone, &u.Email, &u.PasswordHash, (*string)(&u.Role), &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PostgresRepo) CreateUser(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO users (`+userColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		u.ID, u.Phone, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return mapErr("create user", err)
	}
	return nil
}

func (r *PostgresRepo) getUser(ctx context.Context, where string, arg any) (*domain.User, bool, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where+`=$1`, arg))
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, mapErr("get user", err)
	}
	return u, true, nil
}

func (r *PostgresRepo) GetUser(ctx context.Context, id string) (*domain.User, bool, error) {
	return r.getUser(ctx, "id", id)
}

func (r *PostgresRepo) GetUserByPhone(ctx context.Context, phone string) (*domain.User, bool, error) {
	return r.getUser(ctx, "phone", phone)
}

func (r *PostgresRepo) UpdateUserRole(ctx context.Context, id string, role domain.Role) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET role=$2, updated_at=now() WHERE id=$1`, id, string(role)); err != nil {
		return mapErr("update user role", err)
	}
	return nil
}

const merchantColumns = `id,user_id,name,contact_name,phone,wechat,email,description,address,open_hours,image_url,dashboard_key,is_active,created_at,updated_at`

func merchantFields(m *domain.Merchant) []any {
	return []any{&m.ID, &m.UserID, &m.Name, &m.ContactName, &m.Phone, &m.WeChat, &m.Email, &m.Description,
		&m.Address, &m.OpenHours, &m.ImageURL, &m.DashboardKey, &m.Active, &m.CreatedAt, &m.UpdatedAt}
}

func scanMerchant(s scanner) (*domain.Merchant, error) {
	var m domain.Merchant
	if err := s.Scan(merchantFields(&m)...); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PostgresRepo) PutMerchant(ctx context.Context, m *domain.Merchant) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO merchants (`+merchantColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (id) DO UPDATE SET user_id=$2,name=$3,contact_name=$4,phone=$5,wechat=$6,email=$7,description=$8,
		address=$9,open_hours=$10,image_url=$11,dashboard_key=$12,is_active=$13,updated_at=$15`,
		m.ID, m.UserID, m.Name, m.ContactName, m.Phone, m.WeChat, m.Email, m.Description,
		m.Address, m.OpenHours, m.ImageURL, m.DashboardKey, m.Active, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return mapErr("put merchant", err)
	}
	return nil
}

func (r *PostgresRepo) getMerchant(ctx context.Context, where string, arg any) (*domain.Merchant, bool, error) {
	m, err := scanMerchant(r.db.QueryRowContext(ctx, `SELECT `+merchantColumns+` FROM merchants WHERE `+where+`=$1`, arg))
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, mapErr("get merchant", err)
	}
	return m, true, nil
}

func (r *PostgresRepo) GetMerchant(ctx context.Context, id string) (*domain.Merchant, bool, error) {
	return r.getMerchant(ctx, "id", id)
}

func (r *PostgresRepo) GetMerchantByUserID(ctx context.Context, userID string) (*domain.Merchant, bool, error) {
	return r.getMerchant(ctx, "user_id", userID)
}

func (r *PostgresRepo) GetMerchantByDashboardKey(ctx context.Context, key string) (*domain.Merchant, bool, error) {
	return r.getMerchant(ctx, "dashboard_key", key)
}

func (r *PostgresRepo) ListMerchants(ctx context.Context) ([]domain.Merchant, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+merchantColumns+` FROM merchants ORDER BY name ASC`)
	if err != nil {
		return nil, mapErr("list merchants", err)
	}
	defer rows.Close()
	out := []domain.Merchant{}
	for rows.Next() {
		m, err := scanMerchant(rows)
		if err != nil {
			return nil, mapErr("scan merchant", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// SearchMerchants counts each merchant's packages and services in the same
// query so the directory can rank by catalogue size.
func (r *PostgresRepo) SearchMerchants(ctx context.Context, q string, page, limit int) ([]domain.MerchantSummary, int, error) {
	where := `m.is_active`
	args := []any{}
	order := `package_count DESC, service_count DESC, m.updated_at DESC`
	if q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		where += ` AND (m.name ILIKE $1 OR m.description ILIKE $1 OR m.address ILIKE $1)`
		order = `m.updated_at DESC`
	}
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM merchants m WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, mapErr("count merchants", err)
	}
	n := len(args)
	args = append(args, limit, (page-1)*limit)
	rows, err := r.db.QueryContext(ctx, `SELECT `+prefixed("m", merchantColumns)+`,
		(SELECT count(*) FROM packages p WHERE p.merchant_id=m.id) AS package_count,
		(SELECT count(*) FROM services s WHERE s.merchant_id=m.id) AS service_count
		FROM merchants m WHERE `+where+` ORDER BY `+order+
		fmt.Sprintf(` LIMIT $%d OFFSET $%d`, n+1, n+2), args...)
	if err != nil {
		return nil, 0, mapErr("search merchants", err)
	}
	defer rows.Close()
	out := []domain.MerchantSummary{}
	for rows.Next() {
		var sum domain.MerchantSummary
		dest := append(merchantFields(&sum.Merchant), &sum.PackageCount, &sum.ServiceCount)
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, mapErr("scan merchant", err)
		}
		out = append(out, sum)
	}
	return out, total, rows.Err()
}

func prefixed(alias, columns string) string {
	cols := strings.Split(columns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ",")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
