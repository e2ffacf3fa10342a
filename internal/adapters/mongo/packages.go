package mongo

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/studio-bookings/internal/domain"
	"github.com/robertarktes/studio-bookings/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PackageRepository is the read side of the service catalog: it resolves a
// package id to its name and live price.
type PackageRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewPackageRepository(db *mongo.Database, logger observability.Logger) *PackageRepository {
	return &PackageRepository{
		coll:   db.Collection("packages"),
		logger: logger,
	}
}

func (r *PackageRepository) Package(ctx context.Context, id string) (*domain.Package, error) {
	var pkg domain.Package
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&pkg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		r.logger.WithError(err).WithField("package_id", id).Error("failed to get package")
		return nil, domain.Unavailable(err, "find package")
	}
	return &pkg, nil
}

func (r *PackageRepository) List(ctx context.Context) ([]domain.Package, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, domain.Unavailable(err, "list packages")
	}
	defer cur.Close(ctx)

	pkgs := []domain.Package{}
	if err := cur.All(ctx, &pkgs); err != nil {
		return nil, domain.Unavailable(err, "decode packages")
	}
	return pkgs, nil
}

// Upsert writes the live package. Existing bookings keep their snapshot.
func (r *PackageRepository) Upsert(ctx context.Context, pkg domain.Package) error {
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": pkg.ID}, pkg, options.Replace().SetUpsert(true))
	if err != nil {
		r.logger.WithError(err).WithField("package_id", pkg.ID).Error("failed to upsert package")
		return domain.Unavailable(err, "upsert package")
	}
	return nil
}
