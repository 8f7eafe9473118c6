package memstore

import (
	"context"
	"time"

	identitydomain "b2b-tenancy/internal/identity/domain"
	"b2b-tenancy/internal/platform/errs"
	userdomain "b2b-tenancy/internal/user/domain"
)

type users struct{ s *Store }

func (r *users) GetByID(_ context.Context, id string) (*userdomain.User, error) {
	var out *userdomain.User
	r.s.read(func(st *state) {
		if u, ok := st.users[id]; ok {
			out = &u
		}
	})
	return out, nil
}

func (r *users) GetByEmail(_ context.Context, email string) (*userdomain.User, error) {
	email = userdomain.NormalizeEmail(email)
	var out *userdomain.User
	r.s.read(func(st *state) {
		for _, u := range st.users {
			if u.Email == email {
				out = &u
				return
			}
		}
	})
	return out, nil
}

func (r *users) Create(_ context.Context, u *userdomain.User) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.users[u.ID]; ok {
			return errs.Newf(errs.ErrConflict, "user %s already exists", u.ID)
		}
		for _, existing := range st.users {
			if existing.Email == u.Email {
				return errs.Newf(errs.ErrConflict, "email %s is already registered", u.Email)
			}
		}
		st.users[u.ID] = *u
		return nil
	})
}

func (r *users) Update(_ context.Context, u *userdomain.User) error {
	return r.s.write(func(st *state) error {
		cur, ok := st.users[u.ID]
		if !ok {
			return errs.New(errs.ErrNotFound, "user not found")
		}
		cur.Name, cur.AvatarURL, cur.Bio, cur.Phone = u.Name, u.AvatarURL, u.Bio, u.Phone
		cur.Timezone, cur.Locale, cur.Status, cur.UpdatedAt = u.Timezone, u.Locale, u.Status, u.UpdatedAt
		st.users[u.ID] = cur
		return nil
	})
}

type identities struct{ s *Store }

func (r *identities) GetByUserAndProvider(_ context.Context, userID string, provider identitydomain.IdentityProvider) (*identitydomain.Identity, error) {
	var out *identitydomain.Identity
	r.s.read(func(st *state) {
		for _, i := range st.identities {
			if i.UserID == userID && i.Provider == provider {
				out = &i
				return
			}
		}
	})
	return out, nil
}

func (r *identities) Create(_ context.Context, i *identitydomain.Identity) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.users[i.UserID]; !ok {
			return errs.New(errs.ErrNotFound, "user not found")
		}
		for _, existing := range st.identities {
			if existing.ID == i.ID || (existing.UserID == i.UserID && existing.Provider == i.Provider) ||
				(existing.Provider == i.Provider && existing.ProviderID == i.ProviderID) {
				return errs.New(errs.ErrConflict, "identity already exists")
			}
		}
		st.identities[i.ID] = *i
		return nil
	})
}

func (r *identities) UpdatePasswordHash(_ context.Context, id, passwordHash string) error {
	return r.s.write(func(st *state) error {
		cur, ok := st.identities[id]
		if !ok {
			return errs.New(errs.ErrNotFound, "identity not found")
		}
		cur.PasswordHash = passwordHash
		cur.UpdatedAt = time.Now().UTC()
		st.identities[id] = cur
		return nil
	})
}
