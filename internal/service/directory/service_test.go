package directory

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"chatting-demo-backend/internal/model"
	"chatting-demo-backend/internal/record"
	"chatting-demo-backend/internal/store"

	"github.com/rs/zerolog"
)

type countingStore struct {
	store.Store
	gets    map[string]int
	failSet map[string]error
}

func (c *countingStore) Get(ctx context.Context, path string) (interface{}, error) {
	c.gets[path]++
	return c.Store.Get(ctx, path)
}

func (c *countingStore) Set(ctx context.Context, path string, value interface{}) error {
	if err, ok := c.failSet[path]; ok {
		return err
	}
	return c.Store.Set(ctx, path, value)
}

func newTestService() (*Service, *countingStore) {
	st := &countingStore{
		Store:   store.New(store.NewMemoryBackend(), store.NewLocalNotifier(), zerolog.Nop()),
		gets:    make(map[string]int),
		failSet: make(map[string]error),
	}
	return New(st, zerolog.Nop()), st
}

func mustRegister(t *testing.T, svc *Service, email, first, last string) RegisterResult {
	t.Helper()
	result, err := svc.RegisterUser(context.Background(), model.User{Email: email, FirstName: first, LastName: last})
	if err != nil {
		t.Fatalf("RegisterUser(%s) error: %v", email, err)
	}
	return result
}

func assertCode(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	var svcErr *Error
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected *Error, got %T (%v)", err, err)
	}
	if svcErr.Code != code {
		t.Fatalf("expected %s, got %s", code, svcErr.Code)
	}
}

func TestRegisterUserWritesRecordAndDirectory(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService()

	result := mustRegister(t, svc, "alice@example.com", "Alice", "Smith")
	if !result.DirectoryUpdated || result.AlreadyListed {
		t.Fatalf("unexpected result %+v", result)
	}

	value, err := st.Get(ctx, "alice-example-com")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	want := map[string]interface{}{"firstName": "Alice", "lastName": "Smith"}
	if !reflect.DeepEqual(value, want) {
		t.Fatalf("unexpected user record %#v", value)
	}

	entries, err := svc.ListAllUsers(ctx)
	if err != nil {
		t.Fatalf("ListAllUsers error: %v", err)
	}
	if len(entries) != 1 || entries[0] != (model.DirectoryEntry{Name: "Alice Smith", Email: "alice-example-com"}) {
		t.Fatalf("unexpected directory %+v", entries)
	}
}

func TestRegisterUserIsIdempotentOnDirectory(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	mustRegister(t, svc, "alice@example.com", "Alice", "Smith")
	again := mustRegister(t, svc, "alice@example.com", "Alice", "Smith")
	if again.DirectoryUpdated || !again.AlreadyListed {
		t.Fatalf("unexpected result %+v", again)
	}

	entries, _ := svc.ListAllUsers(ctx)
	if len(entries) != 1 {
		t.Fatalf("expected 1 directory entry, got %d", len(entries))
	}
}

func TestRegisterUserKeepsConversations(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService()
	mustRegister(t, svc, "alice@example.com", "Alice", "Smith")

	summary := record.EncodeConversation(model.Conversation{ID: "conversation_m1", OtherUserEmail: "bob-example-com", Name: "Bob"})
	_ = st.Set(ctx, model.ConversationsPath("alice@example.com"), []interface{}{summary})

	mustRegister(t, svc, "alice@example.com", "Alicia", "Smith")
	value, _ := st.Get(ctx, model.ConversationsPath("alice@example.com"))
	if list, ok := record.AsList(value); !ok || len(list) != 1 {
		t.Fatalf("conversations lost: %#v", value)
	}
	user, err := svc.GetProfile(ctx, "alice@example.com")
	if err != nil || user.FirstName != "Alicia" {
		t.Fatalf("unexpected profile %+v %v", user, err)
	}
}

func TestRegisterUserToleratesMalformedDirectory(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService()
	_ = st.Set(ctx, model.UsersPath(), "garbage")

	mustRegister(t, svc, "bob@example.com", "Bob", "Jones")
	entries, err := svc.ListAllUsers(ctx)
	if err != nil || len(entries) != 1 {
		t.Fatalf("unexpected directory %+v %v", entries, err)
	}
}

func TestRegisterUserDirectoryFailureIsPartial(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService()
	st.failSet[model.UsersPath()] = errors.New("unavailable")

	result, err := svc.RegisterUser(ctx, model.User{Email: "bob@example.com", FirstName: "Bob"})
	assertCode(t, err, ErrorCodePartialFailure)
	if result.DirectoryUpdated || result.DirectoryErr == nil {
		t.Fatalf("unexpected result %+v", result)
	}
	exists, err := svc.UserExists(ctx, "bob@example.com")
	if err != nil || !exists {
		t.Fatalf("expected user record to exist, got %v %v", exists, err)
	}
}

func TestRegisterUserValidation(t *testing.T) {
	svc, _ := newTestService()
	cases := []model.User{
		{Email: "", FirstName: "A"},
		{Email: "not-an-email", FirstName: "A"},
		{Email: "Alice <alice@example.com>", FirstName: "A"},
		{Email: "alice@example.com", FirstName: " "},
	}
	for _, u := range cases {
		_, err := svc.RegisterUser(context.Background(), u)
		assertCode(t, err, ErrorCodeValidation)
	}
}

func TestUserExists(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	mustRegister(t, svc, "alice@example.com", "Alice", "Smith")

	exists, err := svc.UserExists(ctx, "alice@example.com")
	if err != nil || !exists {
		t.Fatalf("expected alice to exist, got %v %v", exists, err)
	}
	exists, err = svc.UserExists(ctx, "carol@example.com")
	if err != nil || exists {
		t.Fatalf("expected carol to be absent, got %v %v", exists, err)
	}
}

func TestListAllUsersNotFound(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService()

	_, err := svc.ListAllUsers(ctx)
	assertCode(t, err, ErrorCodeNotFound)

	_ = st.Set(ctx, model.UsersPath(), map[string]interface{}{"a": "b"})
	_, err = svc.ListAllUsers(ctx)
	assertCode(t, err, ErrorCodeNotFound)
}

func TestGetProfile(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	mustRegister(t, svc, "alice@example.com", "Alice", "Smith")

	user, err := svc.GetProfile(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetProfile error: %v", err)
	}
	if user.DisplayName() != "Alice Smith" || user.Email != "alice@example.com" {
		t.Fatalf("unexpected profile %+v", user)
	}

	_, err = svc.GetProfile(ctx, "carol@example.com")
	assertCode(t, err, ErrorCodeUserNotFound)
}

func TestSearchPrefixExcludesCaller(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	mustRegister(t, svc, "alice@example.com", "Alice", "Smith")
	mustRegister(t, svc, "alicia@example.com", "Alicia", "Keys")
	mustRegister(t, svc, "bob@example.com", "Bob", "Jones")

	searcher := NewSearcher(svc, model.Session{Email: "bob@example.com", Name: "Bob Jones"})
	results, err := searcher.Search(ctx, "ALI")
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	want := []model.SearchResult{
		{Name: "Alice Smith", Email: "alice-example-com"},
		{Name: "Alicia Keys", Email: "alicia-example-com"},
	}
	if !reflect.DeepEqual(results, want) {
		t.Fatalf("unexpected results %+v", results)
	}

	self := NewSearcher(svc, model.Session{Email: "alice@example.com", Name: "Alice Smith"})
	results, _ = self.Search(ctx, "ali")
	if len(results) != 1 || results[0].Email != "alicia-example-com" {
		t.Fatalf("expected caller excluded, got %+v", results)
	}

	results, _ = searcher.Search(ctx, "smith")
	if len(results) != 0 {
		t.Fatalf("expected prefix-only match, got %+v", results)
	}
}

func TestSearchFetchesOnceUntilReset(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService()
	mustRegister(t, svc, "alice@example.com", "Alice", "Smith")
	st.gets = make(map[string]int)

	searcher := svc.SearcherFor(model.Session{Email: "bob@example.com"})
	for i := 0; i < 3; i++ {
		if _, err := searcher.Search(ctx, "a"); err != nil {
			t.Fatalf("Search error: %v", err)
		}
	}
	if st.gets[model.UsersPath()] != 1 {
		t.Fatalf("expected one directory fetch, got %d", st.gets[model.UsersPath()])
	}

	mustRegister(t, svc, "alex@example.com", "Alex", "Green")
	results, _ := searcher.Search(ctx, "al")
	if len(results) != 1 {
		t.Fatalf("expected cached directory, got %+v", results)
	}

	searcher.Reset()
	results, _ = searcher.Search(ctx, "al")
	if len(results) != 2 {
		t.Fatalf("expected refreshed directory, got %+v", results)
	}
	if svc.SearcherFor(model.Session{Email: "bob@example.com"}) != searcher {
		t.Fatal("expected the same cached searcher")
	}
}

func TestSearchRequiresTerm(t *testing.T) {
	svc, _ := newTestService()
	_, err := NewSearcher(svc, model.Session{Email: "bob@example.com"}).Search(context.Background(), "  ")
	assertCode(t, err, ErrorCodeValidation)
}

func TestSearcherCacheIsBounded(t *testing.T) {
	svc, _ := newTestService()
	clock := time.Date(2024, 1, 2, 15, 4, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }
	svc.maxSearchers = 3

	first := svc.SearcherFor(model.Session{Email: "u0@example.com"})
	for i := 1; i < 10; i++ {
		clock = clock.Add(time.Second)
		svc.SearcherFor(model.Session{Email: fmt.Sprintf("u%d@example.com", i)})
	}
	if got := len(svc.searchers); got != 3 {
		t.Fatalf("expected 3 cached searchers, got %d", got)
	}
	if svc.SearcherFor(model.Session{Email: "u0@example.com"}) == first {
		t.Fatal("expected the least recently used searcher to be evicted")
	}
}

func TestSearcherCacheDropsIdleEntries(t *testing.T) {
	svc, _ := newTestService()
	clock := time.Date(2024, 1, 2, 15, 4, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }

	svc.SearcherFor(model.Session{Email: "alice@example.com"})
	svc.SearcherFor(model.Session{Email: "bob@example.com"})

	clock = clock.Add(searcherIdleTTL + time.Minute)
	svc.SearcherFor(model.Session{Email: "carol@example.com"})
	if got := len(svc.searchers); got != 1 {
		t.Fatalf("expected idle searchers to be dropped, got %d cached", got)
	}
}
