package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Memberships interface {
	repository.Repository[*ProjectMembership]

	FindMembership(ctx context.Context, userID, projectID uuid.UUID) (*ProjectMembership, error)
	FindMembershipTx(ctx context.Context, tx bun.IDB, userID, projectID uuid.UUID) (*ProjectMembership, error)

	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*ProjectMembership, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*ProjectMembership, error)

	AddMember(ctx context.Context, membership *ProjectMembership) (*ProjectMembership, error)
	AddMemberTx(ctx context.Context, tx bun.IDB, membership *ProjectMembership) (*ProjectMembership, error)

	ChangeRole(ctx context.Context, userID, projectID uuid.UUID, role ProjectRole) (*ProjectMembership, error)

	RemoveMember(ctx context.Context, userID, projectID uuid.UUID) error
	RemoveMemberTx(ctx context.Context, tx bun.IDB, userID, projectID uuid.UUID) error
}

type memberships struct {
	repository.Repository[*ProjectMembership]
	db *bun.DB
}

var _ Memberships = (*memberships)(nil)
var _ MembershipResolver = (*memberships)(nil)

// NewMembershipsRepository builds the Memberships repository on the generic
// bun repo.
func NewMembershipsRepository(db *bun.DB) Memberships {
	repo := repository.NewRepository[*ProjectMembership](db, repository.ModelHandlers[*ProjectMembership]{
		NewRecord: func() *ProjectMembership { return &ProjectMembership{} },
		GetID: func(record *ProjectMembership) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *ProjectMembership, id uuid.UUID) {
			if record != nil {
				record.ID = id
			}
		},
		GetIdentifier: func() string {
			return "id"
		},
	})

	return &memberships{
		Repository: repo,
		db:         db,
	}
}

func (a *memberships) FindMembership(ctx context.Context, userID, projectID uuid.UUID) (*ProjectMembership, error) {
	return a.FindMembershipTx(ctx, a.db, userID, projectID)
}

func (a *memberships) FindMembershipTx(ctx context.Context, tx bun.IDB, userID, projectID uuid.UUID) (*ProjectMembership, error) {
	record := &ProjectMembership{}

	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.project_id = ?", projectID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"user_id":    userID.String(),
					"project_id": projectID.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *memberships) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*ProjectMembership, error) {
	var records []*ProjectMembership
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.project_id = ?", projectID).
		Relation("User").
		Order("created_at ASC").
		Scan(ctx)
	return records, err
}

func (a *memberships) ListByUser(ctx context.Context, userID uuid.UUID) ([]*ProjectMembership, error) {
	var records []*ProjectMembership
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Order("created_at ASC").
		Scan(ctx)
	return records, err
}

func (a *memberships) AddMember(ctx context.Context, membership *ProjectMembership) (*ProjectMembership, error) {
	return a.AddMemberTx(ctx, a.db, membership)
}

func (a *memberships) AddMemberTx(ctx context.Context, tx bun.IDB, membership *ProjectMembership) (*ProjectMembership, error) {
	if !membership.Role.IsValid() {
		return nil, goerrors.New("invalid project role", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{
				"role": string(membership.Role),
			})
	}
	return a.Repository.CreateTx(ctx, tx, membership)
}

func (a *memberships) ChangeRole(ctx context.Context, userID, projectID uuid.UUID, role ProjectRole) (*ProjectMembership, error) {
	if !role.IsValid() {
		return nil, goerrors.New("invalid project role", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{
				"role": string(role),
			})
	}

	record, err := a.FindMembership(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}

	record.Role = role

	return a.Repository.Update(ctx, record, repository.UpdateByID(record.ID.String()))
}

func (a *memberships) RemoveMember(ctx context.Context, userID, projectID uuid.UUID) error {
	return a.RemoveMemberTx(ctx, a.db, userID, projectID)
}

func (a *memberships) RemoveMemberTx(ctx context.Context, tx bun.IDB, userID, projectID uuid.UUID) error {
	res, err := tx.NewDelete().
		Model((*ProjectMembership)(nil)).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.project_id = ?", projectID).
		Exec(ctx)

	if err != nil {
		return err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"user_id":    userID.String(),
				"project_id": projectID.String(),
			})
	}

	return nil
}
