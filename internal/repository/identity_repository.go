package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tvandenberg/thirteenf/internal/apperrors"
	"github.com/tvandenberg/thirteenf/internal/model"
)

// IdentityRepository provides data access methods for the
// security_identities table: the CUSIP to ticker/name/shares-outstanding
// mapping the resolver runs against.
type IdentityRepository struct {
	db *sql.DB
}

// NewIdentityRepository creates a new IdentityRepository with the provided database connection.
func NewIdentityRepository(db *sql.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

const identityColumns = `cusip, ticker, name, shares_outstanding, shares_as_of, mapping_source, is_etf, last_updated`

// Get retrieves one identity by CUSIP.
func (r *IdentityRepository) Get(cusip string) (model.SecurityIdentity, error) {
	query := `
          SELECT ` + identityColumns + `
          FROM security_identities
          WHERE cusip = ?
      `
	row := r.db.QueryRow(query, cusip)
	identity, err := scanIdentity(row)
	if err == sql.ErrNoRows {
		return model.SecurityIdentity{}, apperrors.ErrIdentityNotFound
	}
	if err != nil {
		return model.SecurityIdentity{}, fmt.Errorf("failed to query security identity: %w", err)
	}
	return identity, nil
}

// List retrieves the full identity table, the resolver's load shape.
func (r *IdentityRepository) List() ([]model.SecurityIdentity, error) {
	query := `
          SELECT ` + identityColumns + `
          FROM security_identities
          ORDER BY cusip
      `
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query security_identities table: %w", err)
	}
	defer rows.Close()

	identities := []model.SecurityIdentity{}
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan security_identities results: %w", err)
		}
		identities = append(identities, identity)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating security_identities table: %w", err)
	}
	return identities, nil
}

// UpsertMapping stores a ticker/name mapping for a CUSIP, preserving any
// shares-outstanding data a different collaborator already attached. A
// manual mapping is never downgraded by an automated source, and a mapping
// without a name never blanks one a previous source supplied.
func (r *IdentityRepository) UpsertMapping(cusip string, ticker *string, name string, source model.MappingSource, updated time.Time) error {
	query := `
          INSERT INTO security_identities (cusip, ticker, name, mapping_source, last_updated)
          VALUES (?, ?, ?, ?, ?)
          ON CONFLICT (cusip) DO UPDATE SET
              ticker = excluded.ticker,
              name = CASE WHEN excluded.name != '' THEN excluded.name ELSE security_identities.name END,
              mapping_source = excluded.mapping_source,
              last_updated = excluded.last_updated
          WHERE security_identities.mapping_source != 'manual' OR excluded.mapping_source = 'manual'
      `
	if _, err := r.db.Exec(query, cusip, ticker, name, string(source), formatTime(updated)); err != nil {
		return fmt.Errorf("failed to upsert identity mapping: %w", err)
	}
	return nil
}

// UpsertShares stores a shares-outstanding figure for a CUSIP. The row is
// created as unresolved when no mapping exists yet, so shares data is never
// dropped for arriving before the ticker mapping.
func (r *IdentityRepository) UpsertShares(cusip string, shares int64, asOf, updated time.Time) error {
	query := `
          INSERT INTO security_identities (cusip, shares_outstanding, shares_as_of, mapping_source, last_updated)
          VALUES (?, ?, ?, 'unresolved', ?)
          ON CONFLICT (cusip) DO UPDATE SET
              shares_outstanding = excluded.shares_outstanding,
              shares_as_of = excluded.shares_as_of,
              last_updated = excluded.last_updated
      `
	if _, err := r.db.Exec(query, cusip, shares, formatTime(asOf), formatTime(updated)); err != nil {
		return fmt.Errorf("failed to upsert shares outstanding: %w", err)
	}
	return nil
}

// SetETF flags or unflags a CUSIP as an exchange-traded fund.
func (r *IdentityRepository) SetETF(cusip string, isETF bool, updated time.Time) error {
	result, err := r.db.Exec(`
          UPDATE security_identities
          SET is_etf = ?, last_updated = ?
          WHERE cusip = ?
      `, boolToInt(isETF), formatTime(updated), cusip)
	if err != nil {
		return fmt.Errorf("failed to set ETF flag: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read ETF flag update result: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrIdentityNotFound
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scan code.
type scanner interface {
	Scan(dest ...any) error
}

func scanIdentity(s scanner) (model.SecurityIdentity, error) {
	var (
		identity    model.SecurityIdentity
		ticker      sql.NullString
		shares      sql.NullInt64
		sharesAsOf  sql.NullString
		source      string
		isETF       int
		lastUpdated string
	)
	if err := s.Scan(&identity.CUSIP, &ticker, &identity.Name, &shares, &sharesAsOf, &source, &isETF, &lastUpdated); err != nil {
		return model.SecurityIdentity{}, err
	}
	if ticker.Valid && ticker.String != "" {
		identity.Ticker = &ticker.String
	}
	if shares.Valid {
		identity.SharesOutstanding = &shares.Int64
	}
	if sharesAsOf.Valid && sharesAsOf.String != "" {
		asOf, err := ParseTime(sharesAsOf.String)
		if err != nil {
			return model.SecurityIdentity{}, err
		}
		identity.SharesAsOf = &asOf
	}
	identity.MappingSource = model.MappingSource(source)
	identity.IsETF = isETF != 0

	updated, err := ParseTime(lastUpdated)
	if err != nil {
		return model.SecurityIdentity{}, err
	}
	identity.LastUpdated = updated
	return identity, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
