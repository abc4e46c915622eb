package service

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/library-service/internal/auth"
	"github.com/spec-kit/library-service/internal/domain"
	"github.com/spec-kit/library-service/internal/events"
)

func TestBorrowAndReturn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")
	bob := f.register(t, "Bob", "bob@example.com")
	book := f.seedBook(t, "Dune")

	record, err := f.borrows.Borrow(ctx, alice, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", record.BookTitle)
	assert.Equal(t, "Alice", record.UserName)
	assert.False(t, record.Returned)

	stored, err := f.books.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.True(t, stored.Borrowed)

	_, err = f.borrows.Borrow(ctx, bob, book.ID)
	requireDomainError(t, err, http.StatusConflict, "Book is already borrowed")

	_, err = f.borrows.Borrow(ctx, alice, 999)
	requireDomainError(t, err, http.StatusNotFound, "Book not found")

	_, err = f.borrows.Return(ctx, bob, record.ID)
	requireDomainError(t, err, http.StatusBadRequest, "You can only return your own borrowed books")

	returned, err := f.borrows.Return(ctx, alice, record.ID)
	require.NoError(t, err)
	assert.True(t, returned.Returned)
	require.NotNil(t, returned.ReturnDate)

	_, err = f.borrows.Return(ctx, alice, record.ID)
	requireDomainError(t, err, http.StatusConflict, "Book is already returned")

	_, err = f.borrows.Return(ctx, alice, 999)
	requireDomainError(t, err, http.StatusNotFound, "Borrow record not found")

	stored, err = f.books.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.False(t, stored.Borrowed)

	loanEvents := 0
	for _, eventType := range f.dispatcher.types() {
		if eventType == events.EventBookBorrowed || eventType == events.EventBookReturned {
			loanEvents++
		}
	}
	assert.Equal(t, 2, loanEvents)
}

func TestBorrowLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")

	for i := range domain.MaxActiveBorrows {
		book := f.seedBook(t, fmt.Sprintf("Book %d", i))
		_, err := f.borrows.Borrow(ctx, alice, book.ID)
		require.NoError(t, err)
	}

	extra := f.seedBook(t, "One Too Many")
	_, err := f.borrows.Borrow(ctx, alice, extra.ID)
	requireDomainError(t, err, http.StatusBadRequest, "Maximum active borrow limit of 5 books reached")

	active, err := f.borrows.MyActive(ctx, alice)
	require.NoError(t, err)
	_, err = f.borrows.Return(ctx, alice, active[0].ID)
	require.NoError(t, err)

	_, err = f.borrows.Borrow(ctx, alice, extra.ID)
	require.NoError(t, err)
}

func TestBorrowListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")
	dune := f.seedBook(t, "Dune")
	emma := f.seedBook(t, "Emma")

	first, err := f.borrows.Borrow(ctx, alice, dune.ID)
	require.NoError(t, err)
	_, err = f.borrows.Borrow(ctx, alice, emma.ID)
	require.NoError(t, err)
	_, err = f.borrows.Return(ctx, alice, first.ID)
	require.NoError(t, err)

	active, err := f.borrows.MyActive(ctx, alice)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, emma.ID, active[0].BookID)

	history, err := f.borrows.MyHistory(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	allActive, err := f.borrows.AllActive(ctx)
	require.NoError(t, err)
	assert.Len(t, allActive, 1)
	allReturned, err := f.borrows.AllReturned(ctx)
	require.NoError(t, err)
	assert.Len(t, allReturned, 1)

	byBook, err := f.borrows.ByBook(ctx, dune.ID)
	require.NoError(t, err)
	assert.Len(t, byBook, 1)
	_, err = f.borrows.ByBook(ctx, 999)
	requireDomainError(t, err, http.StatusNotFound, "Book not found")

	userID, err := strconv.ParseInt(alice.Subject, 10, 64)
	require.NoError(t, err)
	byUser, err := f.borrows.ByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, byUser, 2)
	_, err = f.borrows.ByUser(ctx, 999)
	requireDomainError(t, err, http.StatusNotFound, "User not found")

	got, err := f.borrows.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, got.Returned)
}

func TestBorrowRequiresNumericSubject(t *testing.T) {
	f := newFixture(t)
	_, err := f.borrows.Borrow(context.Background(), &auth.Identity{Subject: "alice"}, 1)
	requireDomainError(t, err, http.StatusUnauthorized, "")

	_, err = f.borrows.Borrow(context.Background(), &auth.Identity{Subject: "4242"}, 1)
	requireDomainError(t, err, http.StatusNotFound, "User not found")
}
