package fixtures

import (
	"bytes"
	"context"
	"io"
	"reflect"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/sqlhunt/sqlhunt/internal/cases"
	"github.com/sqlhunt/sqlhunt/internal/storage"
)

func TestGenerateIsDeterministic(t *testing.T) {
	first, err := Generate("vanished-witness")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	second, err := Generate("vanished-witness")
	if err != nil {
		t.Fatalf("Generate() second error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("two runs produced different datasets")
	}
}

func TestGenerateUnknownCase(t *testing.T) {
	if _, err := Generate("ghost-case"); err == nil {
		t.Fatal("unknown case accepted")
	}
}

func TestEveryRegisteredCaseHasAFixture(t *testing.T) {
	for _, def := range cases.Definitions() {
		ds, err := Generate(def.ID)
		if err != nil {
			t.Fatalf("Generate(%q) error = %v", def.ID, err)
		}
		if len(ds.Persons) == 0 || len(ds.Cases) == 0 {
			t.Fatalf("case %q dataset is empty", def.ID)
		}

		// The planted culprit must be findable and must match the answer.
		found := false
		for _, person := range ds.Persons {
			if cases.NormalizeAnswer(person.Name) == cases.NormalizeAnswer(def.Answer) {
				found = true
			}
		}
		if !found {
			t.Fatalf("case %q answer %q is not in the person table", def.ID, def.Answer)
		}
	}
}

func TestVanishedWitnessPuzzleIsSolvable(t *testing.T) {
	ds, err := Generate("vanished-witness")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	var culpritID int64 = -1
	for _, person := range ds.Persons {
		if person.Name == vanishedWitnessCulprit {
			culpritID = person.ID
		}
	}
	if culpritID < 0 {
		t.Fatal("culprit missing from person table")
	}

	// Exactly one unverified alibi, and it belongs to the culprit.
	unverified := make([]AlibiRecord, 0)
	for _, alibi := range ds.Alibis {
		if !alibi.Verified {
			unverified = append(unverified, alibi)
		}
	}
	if len(unverified) != 1 || unverified[0].PersonID != culpritID {
		t.Fatalf("unverified alibis = %+v, culprit id = %d", unverified, culpritID)
	}

	suspected := false
	for _, suspect := range ds.Suspects {
		if suspect.PersonID == culpritID {
			suspected = true
		}
	}
	if !suspected {
		t.Fatal("culprit is not on the suspect list")
	}
}

func TestFinalMeetingEvidencePointsAtCulprit(t *testing.T) {
	ds, err := Generate("final-meeting")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	var culpritID int64 = -1
	for _, person := range ds.Persons {
		if person.Name == finalMeetingCulprit {
			culpritID = person.ID
		}
	}
	if culpritID < 0 {
		t.Fatal("culprit missing from person table")
	}

	owned := 0
	for _, item := range ds.Evidence {
		if item.BelongsTo == culpritID {
			owned++
		}
	}
	if owned < 2 {
		t.Fatalf("culprit owns %d evidence item(s), puzzle too thin", owned)
	}
}

type memoryObjectStore struct {
	objects map[string][]byte
}

func newMemoryObjectStore() *memoryObjectStore {
	return &memoryObjectStore{objects: map[string][]byte{}}
}

func (m *memoryObjectStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ storage.PutOptions) (storage.ObjectInfo, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	m.objects[key] = data
	return storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (m *memoryObjectStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryObjectStore) Stat(_ context.Context, key string) (storage.ObjectInfo, error) {
	data, ok := m.objects[key]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (m *memoryObjectStore) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func TestPublishFetchRoundTrip(t *testing.T) {
	store := newMemoryObjectStore()
	ctx := context.Background()

	original, err := Generate("final-meeting")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if err := PublishDataset(ctx, store, original); err != nil {
		t.Fatalf("PublishDataset() error = %v", err)
	}
	if _, ok := store.objects["cases/final-meeting/evidence.parquet"]; !ok {
		t.Fatal("evidence artifact not uploaded")
	}

	fetched, err := FetchDataset(ctx, store, "final-meeting")
	if err != nil {
		t.Fatalf("FetchDataset() error = %v", err)
	}
	if !reflect.DeepEqual(original.Persons, fetched.Persons) {
		t.Fatal("person records did not survive the round trip")
	}
	if !reflect.DeepEqual(original.Evidence, fetched.Evidence) {
		t.Fatal("evidence records did not survive the round trip")
	}
}

func TestPublishSkipsEmptyTables(t *testing.T) {
	store := newMemoryObjectStore()

	ds, err := Generate("vanished-witness")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if err := PublishDataset(context.Background(), store, ds); err != nil {
		t.Fatalf("PublishDataset() error = %v", err)
	}
	if _, ok := store.objects["cases/vanished-witness/evidence.parquet"]; ok {
		t.Fatal("empty evidence table produced an artifact")
	}
}

func TestLoaderUsesPostgresPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	loader := NewLoader(db, "pgx")

	ds := Dataset{
		CaseID:  "vanished-witness",
		Persons: []PersonRecord{{ID: 1000, Name: "Marla Voss", Age: 34, Occupation: "bookkeeper", Address: "12 Harbor Street"}},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM person WHERE id IN ($1)`)).
		WithArgs(int64(1000)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO person (id, name, age, occupation, address) VALUES ($1, $2, $3, $4, $5)`)).
		WithArgs(int64(1000), "Marla Voss", int64(34), "bookkeeper", "12 Harbor Street").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := loader.LoadDataset(context.Background(), ds); err != nil {
		t.Fatalf("LoadDataset() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

func TestLoaderPlaceholderStyles(t *testing.T) {
	pg := NewLoader(nil, "pgx")
	if got := pg.placeholders(3); got != "$1, $2, $3" {
		t.Fatalf("pgx placeholders = %q", got)
	}
	duck := NewLoader(nil, "duckdb")
	if got := duck.placeholders(2); got != "?, ?" {
		t.Fatalf("duckdb placeholders = %q", got)
	}
}
