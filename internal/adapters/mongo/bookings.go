package mongo

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/studio-bookings/internal/domain"
	"github.com/robertarktes/studio-bookings/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BookingRepository stores one document per booking. The payments and
// notes arrays are only changed with $push, $pull and positional $set so
// concurrent writers never overwrite each other's entries.
type BookingRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewBookingRepository(db *mongo.Database, logger observability.Logger) *BookingRepository {
	return &BookingRepository{
		coll:   db.Collection("bookings"),
		logger: logger,
	}
}

func (r *BookingRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}

// EnsureIndexes creates the indexes used by calendar and listing queries.
func (r *BookingRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "date", Value: 1}}},
	})
	return domain.Unavailable(err, "create booking indexes")
}

func (r *BookingRepository) Insert(ctx context.Context, b domain.Booking) error {
	if b.Payments == nil {
		b.Payments = []domain.Payment{}
	}
	if b.Notes == nil {
		b.Notes = []domain.Note{}
	}
	_, err := r.coll.InsertOne(ctx, b)
	if mongo.IsDuplicateKeyError(err) {
		return errors.Wrapf(domain.ErrConflict, "booking %s already exists", b.ID)
	}
	if err != nil {
		r.logger.WithError(err).WithField("booking_id", b.ID).Error("failed to insert booking")
		return domain.Unavailable(err, "insert booking")
	}
	return nil
}

func (r *BookingRepository) Get(ctx context.Context, id string) (domain.Booking, error) {
	var b domain.Booking
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Booking{}, errors.Wrapf(domain.ErrNotFound, "booking %s", id)
	}
	if err != nil {
		return domain.Booking{}, domain.Unavailable(err, "find booking")
	}
	normalize(&b)
	return b, nil
}

func (r *BookingRepository) List(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}, {Key: "created_at", Value: 1}})
	cur, err := r.coll.Find(ctx, filterDoc(f), opts)
	if err != nil {
		return nil, domain.Unavailable(err, "list bookings")
	}
	defer cur.Close(ctx)

	bookings := []domain.Booking{}
	if err := cur.All(ctx, &bookings); err != nil {
		return nil, domain.Unavailable(err, "decode bookings")
	}
	for i := range bookings {
		normalize(&bookings[i])
	}
	return bookings, nil
}

func filterDoc(f domain.BookingFilter) bson.M {
	doc := bson.M{}
	status := bson.M{}
	if f.Status != "" {
		status["$eq"] = f.Status
	}
	if f.ExcludeStatus != "" {
		status["$ne"] = f.ExcludeStatus
	}
	if len(status) > 0 {
		doc["status"] = status
	}
	date := bson.M{}
	if f.Date != "" {
		date["$eq"] = f.Date
	}
	if f.From != "" {
		date["$gte"] = f.From
	}
	if f.To != "" {
		date["$lte"] = f.To
	}
	if len(date) > 0 {
		doc["date"] = date
	}
	return doc
}

func (r *BookingRepository) Update(ctx context.Context, id string, p domain.BookingPatch, st domain.Stamp) error {
	set := stampDoc(st)
	str := func(field string, v *string) {
		if v != nil {
			set[field] = *v
		}
	}
	if p.ClientName != nil {
		set["client_name"] = strings.TrimSpace(*p.ClientName)
	}
	if p.ClientPhone != nil {
		set["client_phone"] = strings.TrimSpace(*p.ClientPhone)
	}
	str("address", p.Address)
	str("social_media", p.SocialMedia)
	str("date", p.Date)
	str("time", p.Time)
	str("event_date", p.EventDate)
	str("ceremony_time", p.CeremonyTime)
	str("selected_package", p.SelectedPackage)
	if p.HennaBy != nil {
		set["henna_by"] = *p.HennaBy
	}
	if p.PackagePrice != nil {
		set["package_price"] = *p.PackagePrice
	}
	return r.updateOne(ctx, id, bson.M{"$set": set}, "update booking")
}

func (r *BookingRepository) SetStatus(ctx context.Context, id string, status domain.BookingStatus, st domain.Stamp) error {
	set := stampDoc(st)
	set["status"] = status
	return r.updateOne(ctx, id, bson.M{"$set": set}, "set booking status")
}

func (r *BookingRepository) SnapshotPrice(ctx context.Context, id string, price int64) error {
	filter := bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{"package_price": bson.M{"$in": bson.A{0, nil}}},
			bson.M{"package_price": bson.M{"$exists": false}},
		},
	}
	_, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"package_price": price}})
	return domain.Unavailable(err, "snapshot package price")
}

func (r *BookingRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return domain.Unavailable(err, "delete booking")
	}
	if res.DeletedCount == 0 {
		return errors.Wrapf(domain.ErrNotFound, "booking %s", id)
	}
	return nil
}

func (r *BookingRepository) PushPayment(ctx context.Context, id string, p domain.Payment, st domain.Stamp) error {
	update := bson.M{
		"$push": bson.M{"payments": p},
		"$set":  stampDoc(st),
	}
	return r.updateOne(ctx, id, update, "push payment")
}

func (r *BookingRepository) PullPayment(ctx context.Context, id, paymentID string, st domain.Stamp) error {
	update := bson.M{
		"$pull": bson.M{"payments": bson.M{"_id": paymentID}},
		"$set":  stampDoc(st),
	}
	return r.updateOne(ctx, id, update, "pull payment")
}

func (r *BookingRepository) PushNote(ctx context.Context, id string, n domain.Note, st domain.Stamp) error {
	update := bson.M{
		"$push": bson.M{"notes": n},
		"$set":  stampDoc(st),
	}
	return r.updateOne(ctx, id, update, "push note")
}

func (r *BookingRepository) EditNote(ctx context.Context, id, noteID, body string, st domain.Stamp) error {
	set := stampDoc(st)
	set["notes.$.body"] = strings.TrimSpace(body)
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id, "notes._id": noteID}, bson.M{"$set": set})
	if err != nil {
		return domain.Unavailable(err, "edit note")
	}
	if res.MatchedCount > 0 {
		return nil
	}
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return errors.Wrapf(domain.ErrNotFound, "note %s", noteID)
}

func (r *BookingRepository) PullNote(ctx context.Context, id, noteID string, st domain.Stamp) error {
	update := bson.M{
		"$pull": bson.M{"notes": bson.M{"_id": noteID}},
		"$set":  stampDoc(st),
	}
	return r.updateOne(ctx, id, update, "pull note")
}

func (r *BookingRepository) SetNotes(ctx context.Context, id string, notes []domain.Note, st domain.Stamp) error {
	if notes == nil {
		notes = []domain.Note{}
	}
	set := stampDoc(st)
	set["notes"] = notes
	return r.updateOne(ctx, id, bson.M{"$set": set}, "set notes")
}

func (r *BookingRepository) updateOne(ctx context.Context, id string, update bson.M, op string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		r.logger.WithError(err).WithField("booking_id", id).Error("failed to " + op)
		return domain.Unavailable(err, op)
	}
	if res.MatchedCount == 0 {
		return errors.Wrapf(domain.ErrNotFound, "booking %s", id)
	}
	return nil
}

func stampDoc(st domain.Stamp) bson.M {
	return bson.M{"last_updated_by": st.By, "updated_at": st.At}
}

// normalize replaces null arrays left by older documents.
func normalize(b *domain.Booking) {
	if b.Payments == nil {
		b.Payments = []domain.Payment{}
	}
	if b.Notes == nil {
		b.Notes = []domain.Note{}
	}
}
