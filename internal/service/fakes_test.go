package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/library-service/internal/auth"
	"github.com/spec-kit/library-service/internal/domain"
	"github.com/spec-kit/library-service/internal/events"
	"github.com/spec-kit/library-service/internal/repository"
)

// memoryStore backs every repository interface with maps.
type memoryStore struct {
	mu         sync.Mutex
	seq        int64
	users      map[int64]*domain.User
	authors    map[int64]*domain.Author
	categories map[int64]*domain.Category
	books      map[int64]*domain.Book
	borrows    map[int64]*domain.BorrowRecord
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:      map[int64]*domain.User{},
		authors:    map[int64]*domain.Author{},
		categories: map[int64]*domain.Category{},
		books:      map[int64]*domain.Book{},
		borrows:    map[int64]*domain.BorrowRecord{},
	}
}

func (m *memoryStore) nextID() int64 {
	m.seq++
	return m.seq
}

type userRepo struct{ *memoryStore }

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	user.ID = r.nextID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r userRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r userRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *u
	return &copied, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type authorRepo struct{ *memoryStore }

func (r authorRepo) Create(_ context.Context, author *domain.Author) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	author.ID = r.nextID()
	stored := *author
	r.authors[author.ID] = &stored
	return nil
}

func (r authorRepo) GetByID(_ context.Context, id int64) (*domain.Author, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.authors[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *a
	return &copied, nil
}

func (r authorRepo) GetByName(_ context.Context, name string) (*domain.Author, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.authors {
		if a.Name == name {
			copied := *a
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r authorRepo) List(context.Context) ([]domain.Author, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Author
	for _, a := range r.authors {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type categoryRepo struct{ *memoryStore }

func (r categoryRepo) Create(_ context.Context, category *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	category.ID = r.nextID()
	stored := *category
	r.categories[category.ID] = &stored
	return nil
}

func (r categoryRepo) GetByID(_ context.Context, id int64) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *c
	return &copied, nil
}

func (r categoryRepo) GetByName(_ context.Context, name string) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.categories {
		if c.Name == name {
			copied := *c
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r categoryRepo) List(context.Context) ([]domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Category
	for _, c := range r.categories {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type bookRepo struct{ *memoryStore }

func (r bookRepo) Create(_ context.Context, book *domain.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.books {
		if b.Title == book.Title {
			return repository.ErrDuplicate
		}
	}
	book.ID = r.nextID()
	stored := *book
	r.books[book.ID] = &stored
	return nil
}

func (r bookRepo) Update(_ context.Context, book *domain.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.books[book.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored := *book
	stored.Borrowed = existing.Borrowed
	r.books[book.ID] = &stored
	return nil
}

func (r bookRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.books[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.books, id)
	for recordID, record := range r.borrows {
		if record.BookID == id {
			delete(r.borrows, recordID)
		}
	}
	return nil
}

func (r bookRepo) GetByID(_ context.Context, id int64) (*domain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *b
	return &copied, nil
}

func (r bookRepo) GetByTitle(_ context.Context, title string) (*domain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.books {
		if b.Title == title {
			copied := *b
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r bookRepo) List(_ context.Context, filter repository.BookFilter) ([]domain.Book, error) {
	return r.collect(func(b *domain.Book) bool {
		return (filter.AuthorID == nil || b.AuthorID == *filter.AuthorID) &&
			(filter.CategoryID == nil || b.CategoryID == *filter.CategoryID) &&
			(filter.ReleaseYear == nil || b.ReleaseYear == *filter.ReleaseYear) &&
			(filter.Borrowed == nil || b.Borrowed == *filter.Borrowed)
	}), nil
}

func (r bookRepo) Search(_ context.Context, search domain.BookSearch) ([]domain.Book, error) {
	contains := func(value, term string) bool {
		return term == "" || strings.Contains(strings.ToLower(value), strings.ToLower(term))
	}
	return r.collect(func(b *domain.Book) bool {
		return contains(b.Title, search.Title) &&
			contains(b.AuthorName, search.AuthorName) &&
			contains(b.CategoryName, search.CategoryName) &&
			(search.ReleaseYear == nil || b.ReleaseYear == *search.ReleaseYear)
	}), nil
}

func (r bookRepo) collect(keep func(*domain.Book) bool) []domain.Book {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Book
	for _, b := range r.books {
		if keep(b) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type borrowRepo struct{ *memoryStore }

func (r borrowRepo) Borrow(_ context.Context, userID, bookID int64, limit int) (*domain.BorrowRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return nil, repository.ErrMissingReference
	}
	active := 0
	for _, record := range r.borrows {
		if record.UserID == userID && !record.Returned {
			active++
		}
	}
	if active >= limit {
		return nil, repository.ErrBorrowLimit
	}
	book, ok := r.books[bookID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if book.Borrowed {
		return nil, repository.ErrBookUnavailable
	}
	book.Borrowed = true
	record := &domain.BorrowRecord{
		ID:         r.nextID(),
		BookID:     bookID,
		BookTitle:  book.Title,
		UserID:     userID,
		UserName:   user.Name,
		BorrowDate: time.Now(),
	}
	r.borrows[record.ID] = record
	copied := *record
	return &copied, nil
}

func (r borrowRepo) Return(_ context.Context, recordID int64) (*domain.BorrowRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.borrows[recordID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if record.Returned {
		return nil, repository.ErrAlreadyReturned
	}
	now := time.Now()
	record.Returned = true
	record.ReturnDate = &now
	if book, ok := r.books[record.BookID]; ok {
		book.Borrowed = false
	}
	copied := *record
	return &copied, nil
}

func (r borrowRepo) GetByID(_ context.Context, id int64) (*domain.BorrowRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.borrows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *record
	return &copied, nil
}

func (r borrowRepo) CountActiveByUser(_ context.Context, userID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, record := range r.borrows {
		if record.UserID == userID && !record.Returned {
			count++
		}
	}
	return count, nil
}

func (r borrowRepo) List(_ context.Context, filter repository.BorrowFilter) ([]domain.BorrowRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.BorrowRecord
	for _, record := range r.borrows {
		if (filter.UserID == nil || record.UserID == *filter.UserID) &&
			(filter.BookID == nil || record.BookID == *filter.BookID) &&
			(filter.Returned == nil || record.Returned == *filter.Returned) {
			out = append(out, *record)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// recordingDispatcher captures published events.
type recordingDispatcher struct {
	events.Dispatcher
	mu        sync.Mutex
	published []events.Event
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{Dispatcher: events.NewInMemoryDispatcher()}
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	d.published = append(d.published, event)
	d.mu.Unlock()
	return d.Dispatcher.Publish(ctx, event)
}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.published))
	for _, e := range d.published {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store      *memoryStore
	dispatcher *recordingDispatcher
	tokens     *auth.TokenManager
	auth       *AuthService
	authors    *AuthorService
	categories *CategoryService
	books      *BookService
	borrows    *BorrowService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemoryStore()
	dispatcher := newRecordingDispatcher()

	keys, err := auth.NewKeyMaterial("0123456789abcdef0123456789abcdef", "HS256", false)
	require.NoError(t, err)
	codec, err := auth.NewCodec(keys, nil)
	require.NoError(t, err)
	validator := auth.NewValidator(codec, auth.ValidatorConfig{})
	tokens := auth.NewTokenManager(codec, validator, time.Hour, nil)
	hasher, err := auth.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)

	return &fixture{
		store:      store,
		dispatcher: dispatcher,
		tokens:     tokens,
		auth: NewAuthService(AuthDependencies{
			Users:      userRepo{store},
			Tokens:     tokens,
			Hasher:     hasher,
			Dispatcher: dispatcher,
		}),
		authors:    NewAuthorService(authorRepo{store}),
		categories: NewCategoryService(categoryRepo{store}),
		books: NewBookService(BookDependencies{
			Books:      bookRepo{store},
			Authors:    authorRepo{store},
			Categories: categoryRepo{store},
			Dispatcher: dispatcher,
		}),
		borrows: NewBorrowService(BorrowDependencies{
			Borrows:    borrowRepo{store},
			Users:      userRepo{store},
			Books:      bookRepo{store},
			Dispatcher: dispatcher,
		}),
	}
}

// register signs up a member and returns the identity carried by their token.
func (f *fixture) register(t *testing.T, name, email string) *auth.Identity {
	t.Helper()
	result, err := f.auth.Register(context.Background(), name, email, "password123")
	require.NoError(t, err)
	identity, err := f.tokens.Validator().Validate(result.Token)
	require.NoError(t, err)
	return identity
}

// seedBook creates an author, a category and a book.
func (f *fixture) seedBook(t *testing.T, title string) *domain.Book {
	t.Helper()
	ctx := context.Background()
	author, err := f.authors.Create(ctx, "Author of "+title)
	require.NoError(t, err)
	category, err := f.categories.Create(ctx, "Category of "+title)
	require.NoError(t, err)
	book, err := f.books.Create(ctx, "admin", BookInput{
		Title:       title,
		AuthorID:    author.ID,
		CategoryID:  category.ID,
		ReleaseYear: 1965,
	})
	require.NoError(t, err)
	return book
}
