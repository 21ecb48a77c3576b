package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rpupo63/client-project-portal/errs"
	"github.com/rpupo63/client-project-portal/models"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	projectsCollection       = "projects"
	collaboratorsCollection  = "collaborators"
	servicesCollection       = "services"
	briefingsCollection      = "project_briefings"
	briefingImagesCollection = "briefing_images"
)

// MongoConfig holds the connection settings for the document store.
type MongoConfig struct {
	URI               string
	Database          string
	PoolSize          uint64
	HeartbeatInterval time.Duration
	MaxConnIdleTime   time.Duration
}

// MongoStore is the Store backed by MongoDB. Group updates use multi
// document transactions and therefore need a replica set.
type MongoStore struct {
	client  *mongo.Client
	db      *mongo.Database
	cleanup func()
}

var _ Store = (*MongoStore)(nil)

// ConnectMongo dials MongoDB, checks the connection and makes sure the
// indexes the queries rely on exist.
func ConnectMongo(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.PoolSize > 0 {
		opts.SetMaxPoolSize(cfg.PoolSize)
	}
	if cfg.HeartbeatInterval > 0 {
		opts.SetHeartbeatInterval(cfg.HeartbeatInterval)
	}
	if cfg.MaxConnIdleTime > 0 {
		opts.SetMaxConnIdleTime(cfg.MaxConnIdleTime)
	}

	cli, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errs.NewDatabaseError("connect", "mongodb", err)
	}
	cleanup := func() {
		if err := cli.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("mongo close error")
		}
	}
	if err := cli.Ping(ctx, nil); err != nil {
		cleanup()
		return nil, errs.NewDatabaseError("ping", "mongodb", err)
	}

	store := &MongoStore{client: cli, db: cli.Database(cfg.Database), cleanup: cleanup}
	if err := store.ensureIndexes(ctx); err != nil {
		cleanup()
		return nil, err
	}
	return store, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		projectsCollection: {
			{Keys: bson.D{{Key: "client_email", Value: 1}}},
			{Keys: bson.D{{Key: "client_user", Value: 1}}},
			{Keys: bson.D{{Key: "monthly_invoice_id", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		briefingsCollection: {
			{Keys: bson.D{{Key: "project_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		briefingImagesCollection: {
			{Keys: bson.D{{Key: "project_id", Value: 1}}},
		},
	}
	for name, idx := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return errs.NewDatabaseError("create indexes on", name, err)
		}
	}
	return nil
}

func (s *MongoStore) projects() *mongo.Collection {
	return s.db.Collection(projectsCollection)
}

func (s *MongoStore) CreateProject(ctx context.Context, p *models.Project) error {
	if _, err := s.projects().InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errs.NewAlreadyExistsError("project")
		}
		return errs.NewDatabaseError("create", "project", err)
	}
	return nil
}

func (s *MongoStore) FindProjectByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	p, err := s.findProject(ctx, id)
	if err != nil || p == nil {
		return nil, err
	}
	populated, err := s.populate(ctx, []*models.Project{p})
	if err != nil {
		return nil, err
	}
	return populated[0], nil
}

func (s *MongoStore) findProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var p models.Project
	err := s.projects().FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewDatabaseError("find", "project", err)
	}
	return &p, nil
}

func (s *MongoStore) FindProjects(ctx context.Context, filter models.ProjectFilter) ([]*models.Project, error) {
	opts := options.Find().SetSort(projectSort(filter.OrderBy))
	cur, err := s.projects().Find(ctx, projectFilterDoc(filter), opts)
	if err != nil {
		return nil, errs.NewDatabaseError("list", "projects", err)
	}
	projects := make([]*models.Project, 0)
	if err := cur.All(ctx, &projects); err != nil {
		return nil, errs.NewDatabaseError("decode", "projects", err)
	}
	return s.populate(ctx, projects)
}

func (s *MongoStore) UpdateProject(ctx context.Context, id uuid.UUID, update models.ProjectUpdate, now time.Time) (*models.Project, error) {
	p, err := s.findProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errs.NewNotFound("project")
	}
	prev, err := applyVersioned(p, update, now)
	if err != nil {
		return nil, err
	}
	if err := s.replaceVersioned(ctx, p, prev); err != nil {
		return nil, err
	}
	populated, err := s.populate(ctx, []*models.Project{p})
	if err != nil {
		return nil, err
	}
	return populated[0], nil
}

func (s *MongoStore) UpdateMonthlyGroup(ctx context.Context, monthlyID string, update models.ProjectUpdate, now time.Time) ([]*models.Project, error) {
	return s.updateAll(ctx, bson.M{"monthly_invoice_id": monthlyID}, -1, update, now)
}

func (s *MongoStore) UpdateProjects(ctx context.Context, ids []uuid.UUID, update models.ProjectUpdate, now time.Time) ([]*models.Project, error) {
	return s.updateAll(ctx, bson.M{"_id": bson.M{"$in": ids}}, len(ids), update, now)
}

// updateAll applies update to every matching project inside one session
// transaction. want < 0 accepts any number of documents.
func (s *MongoStore) updateAll(ctx context.Context, filter bson.M, want int, update models.ProjectUpdate, now time.Time) ([]*models.Project, error) {
	sess, err := s.client.StartSession()
	if err != nil {
		return nil, errs.NewDatabaseError("start session for", "projects", err)
	}
	defer sess.EndSession(ctx)

	result, err := sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		cur, err := s.projects().Find(sc, filter)
		if err != nil {
			return nil, err
		}
		var projects []*models.Project
		if err := cur.All(sc, &projects); err != nil {
			return nil, err
		}
		if want >= 0 && len(projects) != want {
			return nil, errs.NewNotFound("project")
		}
		for _, p := range projects {
			prev, err := applyVersioned(p, update, now)
			if err != nil {
				return nil, err
			}
			if err := s.replaceVersioned(sc, p, prev); err != nil {
				return nil, err
			}
		}
		return projects, nil
	})
	if err != nil {
		return nil, errs.NewTransactionFailedError("update projects", err)
	}

	projects, _ := result.([]*models.Project)
	if projects == nil {
		projects = []*models.Project{}
	}
	models.SortProjects(projects, models.OrderCreatedDesc)
	return s.populate(ctx, projects)
}

// replaceVersioned writes p only if the stored document is still at prev.
// Documents written before versioning carry no version field.
func (s *MongoStore) replaceVersioned(ctx context.Context, p *models.Project, prev int) error {
	filter := bson.M{"_id": p.ID, "version": prev}
	if prev == 0 {
		filter["version"] = bson.M{"$in": bson.A{0, nil}}
	}
	res, err := s.projects().ReplaceOne(ctx, filter, p)
	if err != nil {
		return errs.NewDatabaseError("update", "project", err)
	}
	if res.MatchedCount == 0 {
		return errs.NewVersionConflictError("project")
	}
	return nil
}

// populate attaches selected services and assigned collaborators with one
// query per relation.
func (s *MongoStore) populate(ctx context.Context, projects []*models.Project) ([]*models.Project, error) {
	var serviceIDs, collaboratorIDs []uuid.UUID
	for _, p := range projects {
		if p.SelectedServiceID != nil {
			serviceIDs = append(serviceIDs, *p.SelectedServiceID)
		}
		if p.AssignedCollaboratorID != nil {
			collaboratorIDs = append(collaboratorIDs, *p.AssignedCollaboratorID)
		}
	}

	services := make(map[uuid.UUID]*models.Service)
	if len(serviceIDs) > 0 {
		var found []*models.Service
		if err := s.findAll(ctx, servicesCollection, bson.M{"_id": bson.M{"$in": serviceIDs}}, &found); err != nil {
			return nil, err
		}
		for _, svc := range found {
			services[svc.ID] = svc
		}
	}

	collaborators := make(map[uuid.UUID]*models.Collaborator)
	if len(collaboratorIDs) > 0 {
		var found []*models.Collaborator
		if err := s.findAll(ctx, collaboratorsCollection, bson.M{"_id": bson.M{"$in": collaboratorIDs}}, &found); err != nil {
			return nil, err
		}
		for _, c := range found {
			collaborators[c.ID] = c
		}
	}

	for _, p := range projects {
		if p.SelectedServiceID != nil {
			p.SelectedService = services[*p.SelectedServiceID]
		}
		if p.AssignedCollaboratorID != nil {
			p.AssignedCollaborator = collaborators[*p.AssignedCollaboratorID]
		}
	}
	return projects, nil
}

func (s *MongoStore) findAll(ctx context.Context, collection string, filter interface{}, out interface{}, opts ...*options.FindOptions) error {
	cur, err := s.db.Collection(collection).Find(ctx, filter, opts...)
	if err != nil {
		return errs.NewDatabaseError("list", collection, err)
	}
	if err := cur.All(ctx, out); err != nil {
		return errs.NewDatabaseError("decode", collection, err)
	}
	return nil
}

func (s *MongoStore) findOne(ctx context.Context, collection string, filter interface{}, out interface{}) (bool, error) {
	err := s.db.Collection(collection).FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, errs.NewDatabaseError("find", collection, err)
	}
	return true, nil
}

func (s *MongoStore) CreateCollaborator(ctx context.Context, c *models.Collaborator) error {
	if _, err := s.db.Collection(collaboratorsCollection).InsertOne(ctx, c); err != nil {
		return errs.NewDatabaseError("create", "collaborator", err)
	}
	return nil
}

func (s *MongoStore) FindCollaboratorByID(ctx context.Context, id uuid.UUID) (*models.Collaborator, error) {
	var c models.Collaborator
	found, err := s.findOne(ctx, collaboratorsCollection, bson.M{"_id": id}, &c)
	if err != nil || !found {
		return nil, err
	}
	return &c, nil
}

func (s *MongoStore) ListCollaborators(ctx context.Context) ([]*models.Collaborator, error) {
	collaborators := make([]*models.Collaborator, 0)
	opts := options.Find().SetSort(bson.D{{Key: "first_name", Value: 1}, {Key: "last_name", Value: 1}})
	if err := s.findAll(ctx, collaboratorsCollection, bson.M{}, &collaborators, opts); err != nil {
		return nil, err
	}
	return collaborators, nil
}

func (s *MongoStore) CreateService(ctx context.Context, svc *models.Service) error {
	if _, err := s.db.Collection(servicesCollection).InsertOne(ctx, svc); err != nil {
		return errs.NewDatabaseError("create", "service", err)
	}
	return nil
}

func (s *MongoStore) FindServiceByID(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	var svc models.Service
	found, err := s.findOne(ctx, servicesCollection, bson.M{"_id": id}, &svc)
	if err != nil || !found {
		return nil, err
	}
	return &svc, nil
}

func (s *MongoStore) CreateBriefing(ctx context.Context, b *models.ProjectBriefing) error {
	if _, err := s.db.Collection(briefingsCollection).InsertOne(ctx, b); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errs.NewAlreadyExistsError("briefing")
		}
		return errs.NewDatabaseError("create", "briefing", err)
	}
	return nil
}

func (s *MongoStore) FindBriefing(ctx context.Context, projectID uuid.UUID) (*models.ProjectBriefing, error) {
	var b models.ProjectBriefing
	found, err := s.findOne(ctx, briefingsCollection, bson.M{"project_id": projectID}, &b)
	if err != nil || !found {
		return nil, err
	}
	return &b, nil
}

func (s *MongoStore) CreateBriefingImages(ctx context.Context, images []*models.BriefingImage) error {
	if len(images) == 0 {
		return nil
	}
	docs := make([]interface{}, len(images))
	for i, img := range images {
		docs[i] = img
	}
	if _, err := s.db.Collection(briefingImagesCollection).InsertMany(ctx, docs); err != nil {
		return errs.NewDatabaseError("create", "briefing images", err)
	}
	return nil
}

// ListBriefingImages sorts in process because MongoDB orders missing values
// first.
func (s *MongoStore) ListBriefingImages(ctx context.Context, projectID uuid.UUID) ([]*models.BriefingImage, error) {
	images := make([]*models.BriefingImage, 0)
	if err := s.findAll(ctx, briefingImagesCollection, bson.M{"project_id": projectID}, &images); err != nil {
		return nil, err
	}
	sort.SliceStable(images, func(i, j int) bool {
		return images[i].SortKey() < images[j].SortKey()
	})
	return images, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	if s.cleanup != nil {
		s.cleanup()
	}
	return nil
}

// projectFilterDoc translates a ProjectFilter into a query document. It must
// agree with ProjectFilter.Matches. Empty strings are never stored because
// every optional string field is omitempty.
func projectFilterDoc(f models.ProjectFilter) bson.M {
	var and bson.A

	if f.ClientEmail != "" || f.ClientUserID != "" {
		var or bson.A
		if f.ClientEmail != "" {
			or = append(or, bson.M{"client_email": primitive.Regex{
				Pattern: fmt.Sprintf("^%s$", regexp.QuoteMeta(f.ClientEmail)),
				Options: "i",
			}})
		}
		if f.ClientUserID != "" {
			or = append(or, bson.M{"client_user": f.ClientUserID})
		}
		and = append(and, bson.M{"$or": or})
	}
	if f.SimpleCatalog {
		and = append(and, bson.M{"$or": bson.A{
			bson.M{"project_type": models.ProjectTypeSimple},
			bson.M{
				"project_type":  bson.M{"$ne": models.ProjectTypeCustom},
				"service_name":  bson.M{"$regex": `\S`},
				"service_price": bson.M{"$gt": 0},
			},
		}})
	}
	if f.InvoiceType != "" {
		and = append(and, bson.M{"invoice_type": f.InvoiceType})
	}
	if f.InvoiceStatus != "" {
		and = append(and, bson.M{"invoice_status": f.InvoiceStatus})
	}
	if f.MonthlyInvoiceID != "" {
		and = append(and, bson.M{"monthly_invoice_id": f.MonthlyInvoiceID})
	}
	if f.InMonthlyGroup {
		and = append(and, bson.M{"monthly_invoice_id": bson.M{"$nin": bson.A{nil, ""}}})
	}
	if f.HasInvoice {
		and = append(and, bson.M{"invoice_url": bson.M{"$nin": bson.A{nil, ""}}})
	}
	if f.HasCollaborator {
		and = append(and, bson.M{"assigned_collaborator": bson.M{"$ne": nil}})
	}

	if len(and) == 0 {
		return bson.M{}
	}
	return bson.M{"$and": and}
}

func projectSort(order models.ProjectOrder) bson.D {
	switch order {
	case models.OrderMonthlyInvoice:
		return bson.D{{Key: "monthly_invoice_month", Value: -1}, {Key: "invoice_uploaded_at", Value: -1}}
	case models.OrderApprovedDesc:
		return bson.D{{Key: "invoice_approved_at", Value: -1}}
	default:
		return bson.D{{Key: "created_at", Value: -1}}
	}
}
