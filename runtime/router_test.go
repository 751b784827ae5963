package runtime

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"restaurant-hub/domain"
	"restaurant-hub/errors"
	"restaurant-hub/mocks"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var (
	alice = domain.NewIdentity("alice", domain.RoleCustomer, "Alice")
	bob   = domain.NewIdentity("bob", domain.RoleCustomer, "Bob")
	sam   = domain.NewIdentity("sam", domain.RoleStaff, "Sam")
	guest = domain.AnonymousIdentity()
)

func TestRouter_Authorize(t *testing.T) {
	owners := staticOwners{
		domain.ChatRoom("S1"):        "alice",
		domain.OrderRoom("O1"):       "alice",
		domain.ReservationRoom("R1"): "alice",
		domain.ChatRoom("GUEST"):     "",
	}
	router := NewRouter(slog.Default(), NewRegistry(slog.Default()), owners)

	tests := []struct {
		name     string
		room     domain.RoomID
		identity domain.Identity
		want     error
	}{
		{"customer joins own chat", domain.ChatRoom("S1"), alice, nil},
		{"staff joins any chat", domain.ChatRoom("S1"), sam, nil},
		{"other customer denied chat", domain.ChatRoom("S1"), bob, errors.ErrForbidden},
		{"guest denied owned chat", domain.ChatRoom("S1"), guest, errors.ErrForbidden},
		{"guest joins guest chat", domain.ChatRoom("GUEST"), guest, nil},
		{"owner joins order", domain.OrderRoom("O1"), alice, nil},
		{"other customer denied order", domain.OrderRoom("O1"), bob, errors.ErrForbidden},
		{"owner joins reservation", domain.ReservationRoom("R1"), alice, nil},
		{"unknown order", domain.OrderRoom("O404"), alice, errors.ErrNotFound},
		{"staff joins unknown order", domain.OrderRoom("O404"), sam, nil},
		{"anyone joins a table", domain.TableRoom("7"), guest, nil},
		{"staff room for staff", domain.StaffRoom(), sam, nil},
		{"staff room denied to customers", domain.StaffRoom(), alice, errors.ErrForbidden},
		{"staff room denied to guests", domain.StaffRoom(), guest, errors.ErrForbidden},
		{"own user room", domain.UserRoom("alice"), alice, nil},
		{"someone else's user room", domain.UserRoom("alice"), bob, errors.ErrForbidden},
		{"unknown room type", domain.RoomID{Entity: "kitchen", ID: "1"}, sam, errors.ErrInvalidBody},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := router.Authorize(context.Background(), tt.room, tt.identity)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRouter_Join_Then_MembersOf_Until_Leave(t *testing.T) {
	req := require.New(t)
	h := newHub(staticOwners{domain.OrderRoom("O1"): "alice"})
	_, id := h.connect(alice)
	room := domain.OrderRoom("O1")

	// When the owner joins
	req.NoError(h.router.Join(context.Background(), id, room, alice))

	// Then membersOf sees it right away
	req.Contains(h.router.MembersOf(room), id)
	req.True(h.router.IsMember(id, room))

	// And it stays until leave
	h.router.Leave(id, room)
	req.NotContains(h.router.MembersOf(room), id)
}

func TestRouter_Denied_Join_Leaves_No_Membership(t *testing.T) {
	req := require.New(t)
	h := newHub(staticOwners{domain.OrderRoom("O1"): "alice"})
	_, id := h.connect(bob)

	err := h.router.Join(context.Background(), id, domain.OrderRoom("O1"), bob)

	req.ErrorIs(err, errors.ErrForbidden)
	req.Empty(h.router.MembersOf(domain.OrderRoom("O1")))
	req.Empty(h.registry.roomMembers)
}

func TestRouter_Join_Unknown_Connection(t *testing.T) {
	req := require.New(t)
	h := newHub(staticOwners{})

	err := h.router.Join(context.Background(), "ghost", domain.TableRoom("1"), guest)

	req.ErrorIs(err, errors.ErrNotFound)
}

func TestRouter_Leave_Twice_Is_Same_As_Once(t *testing.T) {
	req := require.New(t)
	h := newHub(staticOwners{})
	ctx := context.Background()
	_, first := h.connect(guest)
	_, second := h.connect(guest)
	room := domain.TableRoom("4")
	req.NoError(h.router.Join(ctx, first, room, guest))
	req.NoError(h.router.Join(ctx, second, room, guest))

	h.router.Leave(first, room)
	once := h.router.MembersOf(room)
	h.router.Leave(first, room)
	twice := h.router.MembersOf(room)

	req.Equal(once, twice)
	req.Equal([]domain.ConnectionID{second}, twice)
}

func TestRouter_Empty_Room_Is_Not_Retained(t *testing.T) {
	req := require.New(t)
	h := newHub(staticOwners{})
	_, id := h.connect(guest)
	room := domain.TableRoom("9")

	req.NoError(h.router.Join(context.Background(), id, room, guest))
	h.router.Leave(id, room)

	_, exists := h.registry.roomMembers[room]
	req.False(exists)
}

func TestRouter_Deregister_Removes_From_Every_Room(t *testing.T) {
	req := require.New(t)
	h := newHub(staticOwners{domain.OrderRoom("O1"): "alice", domain.ChatRoom("S1"): "alice"})
	ctx := context.Background()
	_, id := h.connect(alice)
	rooms := []domain.RoomID{domain.OrderRoom("O1"), domain.ChatRoom("S1"), domain.TableRoom("2")}
	for _, room := range rooms {
		req.NoError(h.router.Join(ctx, id, room, alice))
		req.Contains(h.router.MembersOf(room), id)
	}

	h.registry.Deregister(id)

	for _, room := range rooms {
		req.NotContains(h.router.MembersOf(room), id)
	}
}

func TestRouter_AutoJoin(t *testing.T) {
	req := require.New(t)
	h := newHub(staticOwners{})
	ctx := context.Background()
	_, staffID := h.connect(sam)
	_, customerID := h.connect(alice)
	_, guestID := h.connect(guest)

	req.Equal([]domain.RoomID{domain.UserRoom("sam"), domain.StaffRoom()}, h.router.AutoJoin(ctx, staffID, sam))
	req.Equal([]domain.RoomID{domain.UserRoom("alice")}, h.router.AutoJoin(ctx, customerID, alice))
	req.Empty(h.router.AutoJoin(ctx, guestID, guest))
}

func TestRouter_Uses_Ownership_Resolver(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	owners := mocks.NewMockOwnershipResolver(ctrl)
	registry := NewRegistry(slog.Default())
	router := NewRouter(slog.Default(), registry, owners)

	// Given the order belongs to alice
	owners.EXPECT().OwnerOf(gomock.Any(), domain.OrderRoom("O1")).Return("alice", nil).Times(2)

	req.NoError(router.Authorize(context.Background(), domain.OrderRoom("O1"), alice))
	req.ErrorIs(router.Authorize(context.Background(), domain.OrderRoom("O1"), bob), errors.ErrForbidden)
}

func TestRouter_Concurrent_Deregister_And_Reads(t *testing.T) {
	req := require.New(t)
	h := newHub(staticOwners{})
	ctx := context.Background()
	rooms := []domain.RoomID{domain.TableRoom("a"), domain.TableRoom("b")}

	var wg sync.WaitGroup
	var duplicated atomic.Bool
	for i := 0; i < 50; i++ {
		_, id := h.connect(guest)
		for _, room := range rooms {
			req.NoError(h.router.Join(ctx, id, room, guest))
		}
		wg.Add(2)
		go func() {
			defer wg.Done()
			h.registry.Deregister(id)
		}()
		go func() {
			defer wg.Done()
			// A connection is listed once at most, whatever the timing
			members := h.registry.MembersOfAll(rooms)
			seen := map[domain.ConnectionID]bool{}
			for _, m := range members {
				if seen[m] {
					duplicated.Store(true)
				}
				seen[m] = true
			}
		}()
	}
	wg.Wait()

	req.False(duplicated.Load())
	req.Empty(h.registry.sessions)
	req.Empty(h.registry.roomMembers)
}
