/*
config_store.go - Versioned rate-table documents

Implements payroll.ConfigProvider on top of the append-only
config_documents table. Saving a document validates it through the
factory and inserts it as version max+1 for its (company, kind); the
active config bundle is the highest version of each of the four kinds.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/hrm"
	"github.com/warp/payroll-engine/payroll"
)

// ConfigDocument is one stored version of a rate-table document.
type ConfigDocument struct {
	ID        string
	CompanyID hrm.CompanyID
	Kind      factory.ConfigKind
	Version   int
	Document  string
	CreatedBy string
	CreatedAt time.Time
}

// SaveConfigDocument validates and appends a new document version.
// Returns the version number assigned.
func (s *Store) SaveConfigDocument(ctx context.Context, doc ConfigDocument) (int, error) {
	if err := factory.ValidateDocument(doc.Kind, doc.Document); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var version int
	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) + 1 FROM config_documents WHERE company_id = ? AND kind = ?",
		string(doc.CompanyID), string(doc.Kind),
	).Scan(&version)
	if err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO config_documents (id, company_id, kind, version, document, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, string(doc.CompanyID), string(doc.Kind), version, doc.Document,
		doc.CreatedBy, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, err
	}

	return version, tx.Commit()
}

// GetConfigDocument retrieves one stored version. version <= 0 means the
// latest.
func (s *Store) GetConfigDocument(ctx context.Context, companyID hrm.CompanyID, kind factory.ConfigKind, version int) (*ConfigDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getConfigDocument(ctx, companyID, kind, version)
}

func (s *Store) getConfigDocument(ctx context.Context, companyID hrm.CompanyID, kind factory.ConfigKind, version int) (*ConfigDocument, error) {
	query := `
		SELECT id, company_id, kind, version, document, created_by, created_at
		FROM config_documents WHERE company_id = ? AND kind = ?`
	args := []any{string(companyID), string(kind)}
	if version > 0 {
		query += " AND version = ?"
		args = append(args, version)
	} else {
		query += " ORDER BY version DESC LIMIT 1"
	}

	var doc ConfigDocument
	var createdAt string
	var createdBy sql.NullString
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&doc.ID, &doc.CompanyID, &doc.Kind, &doc.Version, &doc.Document, &createdBy, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	doc.CreatedBy = createdBy.String
	doc.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &doc, nil
}

// ListConfigVersions returns every stored version of one kind, newest first.
func (s *Store) ListConfigVersions(ctx context.Context, companyID hrm.CompanyID, kind factory.ConfigKind) ([]ConfigDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, company_id, kind, version, document, created_by, created_at
		 FROM config_documents WHERE company_id = ? AND kind = ? ORDER BY version DESC`,
		string(companyID), string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []ConfigDocument
	for rows.Next() {
		var doc ConfigDocument
		var createdAt string
		var createdBy sql.NullString
		if err := rows.Scan(&doc.ID, &doc.CompanyID, &doc.Kind, &doc.Version,
			&doc.Document, &createdBy, &createdAt); err != nil {
			return nil, err
		}
		doc.CreatedBy = createdBy.String
		doc.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// ActiveConfig builds the tenant's active config bundle from the latest
// version of each document kind. Implements payroll.ConfigProvider.
func (s *Store) ActiveConfig(ctx context.Context, companyID hrm.CompanyID) (*payroll.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	taxDoc, err := s.getConfigDocument(ctx, companyID, factory.KindTaxTable, 0)
	if err != nil {
		return nil, err
	}
	insDoc, err := s.getConfigDocument(ctx, companyID, factory.KindInsurance, 0)
	if err != nil {
		return nil, err
	}
	gradeDoc, err := s.getConfigDocument(ctx, companyID, factory.KindGradeTable, 0)
	if err != nil {
		return nil, err
	}
	commDoc, err := s.getConfigDocument(ctx, companyID, factory.KindCommissionTable, 0)
	if err != nil {
		return nil, err
	}
	if taxDoc == nil || insDoc == nil || gradeDoc == nil || commDoc == nil {
		return nil, payroll.ErrNoActiveConfig
	}

	// Documents were validated at save time; parse failures here mean
	// storage corruption and surface as errors.
	tax, taxJSON, err := factory.ParseTaxTable(taxDoc.Document)
	if err != nil {
		return nil, fmt.Errorf("stored tax table v%d: %w", taxDoc.Version, err)
	}
	insurance, insJSON, err := factory.ParseInsurance(insDoc.Document)
	if err != nil {
		return nil, fmt.Errorf("stored insurance v%d: %w", insDoc.Version, err)
	}
	grades, gradeJSON, err := factory.ParseGradeTable(gradeDoc.Document)
	if err != nil {
		return nil, fmt.Errorf("stored grade table v%d: %w", gradeDoc.Version, err)
	}
	commission, commJSON, err := factory.ParseCommission(commDoc.Document)
	if err != nil {
		return nil, fmt.Errorf("stored commission table v%d: %w", commDoc.Version, err)
	}

	return &payroll.Config{
		Versions: payroll.ConfigVersions{
			Tax:        taxDoc.Version,
			Insurance:  insDoc.Version,
			Grades:     gradeDoc.Version,
			Commission: commDoc.Version,
		},
		Tax:        tax,
		Insurance:  insurance,
		Grades:     grades,
		Commission: commission,
		Documents: factory.PayrollConfigJSON{
			Tax:        taxJSON,
			Insurance:  insJSON,
			Grades:     gradeJSON,
			Commission: commJSON,
		},
	}, nil
}
