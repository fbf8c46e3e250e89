package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/mohammadpnp/member-import/internal/domain/member"
)

const placeholderUserName = "Unknown Member"

var (
	ErrDuplicateMember = errors.New("duplicate member")
	ErrReconcile       = errors.New("failed to reconcile row")
)

type linker interface {
	Link(ctx context.Context, userID, email string)
}

// Outcome describes what reconciliation did with one row.
type Outcome struct {
	User        *member.User
	Member      *member.Member
	AffiliateID *string
	Created     bool
	Notes       []string
}

type Reconciler struct {
	store  member.Store
	linker linker
	opts   Options
	log    zerolog.Logger
}

func NewReconciler(store member.Store, linker linker, opts Options, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		linker: linker,
		opts:   opts,
		log:    log.With().Str("component", "reconciler").Logger(),
	}
}

// Reconcile finds or creates the user and member for row and merges the row into them.
func (r *Reconciler) Reconcile(ctx context.Context, row member.CleanedRow, defaultAffiliateID *string, creatorID string) (Outcome, error) {
	var out Outcome

	affiliateID, affiliateName, err := r.resolveAffiliate(ctx, row, defaultAffiliateID)
	if err != nil {
		return out, err
	}
	out.AffiliateID = affiliateID
	out.Notes = r.applyEmailPolicy(&row, affiliateName)

	user, err := r.findUser(ctx, row)
	if err != nil {
		return out, err
	}
	existing, err := r.findMember(ctx, row, user)
	if err != nil {
		return out, err
	}
	// The matched member decides the account. The row's email stays with the
	// user that already owns it.
	email := row.PrimaryEmail()
	if existing != nil && (user == nil || user.ID != existing.UserID) {
		owner, err := r.store.FindUserByID(ctx, existing.UserID)
		switch {
		case err == nil:
			if user != nil {
				out.Notes = append(out.Notes, fmt.Sprintf("row email belongs to another account; kept the account of member %s", existing.MemberID))
				r.log.Warn().Str("member_id", existing.MemberID).Msg("row email and matched member point at different users")
				email = nil
			}
			user = owner
		case !errors.Is(err, member.ErrNotFound):
			return out, fmt.Errorf("%w: find user of member %s: %v", ErrReconcile, existing.MemberID, err)
		}
	}
	if existing == nil {
		if err := r.checkCollisions(ctx, row); err != nil {
			return out, err
		}
	}

	userCreated := false
	if user == nil {
		if user, err = r.createUser(ctx, row, creatorID); err != nil {
			return out, err
		}
		userCreated = true
	} else if err := r.refreshUser(ctx, user, row.FullName(), email); err != nil {
		return out, err
	}
	out.User = user

	if existing != nil {
		merge(existing, row)
		if affiliateID != nil {
			existing.AffiliateID = affiliateID
		}
		if err := r.store.UpdateMember(ctx, existing); err != nil {
			return out, fmt.Errorf("%w: update member: %v", ErrReconcile, err)
		}
		out.Member = existing
	} else {
		if out.Member, err = r.createMember(ctx, row, user, affiliateID, creatorID); err != nil {
			if userCreated {
				r.discardUser(ctx, user)
			}
			out.User = nil
			return out, err
		}
		out.Created = true
	}

	if userCreated && user.Email != nil && r.linker != nil {
		r.linker.Link(ctx, user.ID, *user.Email)
	}
	return out, nil
}

// resolveAffiliate prefers the row's affiliate over the import default.
// Retired groupings never become affiliates.
func (r *Reconciler) resolveAffiliate(ctx context.Context, row member.CleanedRow, defaultID *string) (*string, string, error) {
	if row.AffiliateName != nil {
		name := strings.TrimSpace(*row.AffiliateName)
		if name == "" || strings.Contains(strings.ToUpper(name), "RETIRED") {
			return nil, "", nil
		}
		a, err := r.store.FindOrCreateAffiliate(ctx, name)
		if err != nil {
			return nil, "", fmt.Errorf("%w: affiliate %q: %v", ErrReconcile, name, err)
		}
		return &a.ID, a.Name, nil
	}

	if defaultID == nil || *defaultID == "" {
		return nil, "", nil
	}
	a, err := r.store.FindAffiliateByID(ctx, *defaultID)
	if errors.Is(err, member.ErrNotFound) {
		return defaultID, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: affiliate %s: %v", ErrReconcile, *defaultID, err)
	}
	return &a.ID, a.Name, nil
}

// applyEmailPolicy drops .org addresses unless the affiliate is allow-listed.
func (r *Reconciler) applyEmailPolicy(row *member.CleanedRow, affiliateName string) []string {
	if r.opts.orgEmailAllowed(affiliateName) {
		return nil
	}
	var notes []string
	for _, field := range []**string{&row.WorkEmail, &row.HomeEmail, &row.Email} {
		if *field != nil && strings.HasSuffix(**field, ".org") {
			notes = append(notes, fmt.Sprintf("email %s ignored: .org addresses are not accepted for this affiliate", **field))
			*field = nil
		}
	}
	return dedupe(notes)
}

// findUser matches by email, then through the member owning the row's member id.
func (r *Reconciler) findUser(ctx context.Context, row member.CleanedRow) (*member.User, error) {
	if email := row.PrimaryEmail(); email != nil {
		u, err := r.store.FindUserByEmail(ctx, *email)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, member.ErrNotFound) {
			return nil, fmt.Errorf("%w: find user by email: %v", ErrReconcile, err)
		}
	}

	if row.MemberID == nil {
		return nil, nil
	}
	m, err := r.store.FindMemberByMemberID(ctx, *row.MemberID)
	if errors.Is(err, member.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find member by member id: %v", ErrReconcile, err)
	}
	u, err := r.store.FindUserByID(ctx, m.UserID)
	if errors.Is(err, member.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find user of member %s: %v", ErrReconcile, *row.MemberID, err)
	}
	return u, nil
}

func (r *Reconciler) createUser(ctx context.Context, row member.CleanedRow, creatorID string) (*member.User, error) {
	hash, err := placeholderCredential()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReconcile, err)
	}
	name := row.FullName()
	if name == "" {
		name = placeholderUserName
	}
	u := &member.User{
		Name:         name,
		Email:        row.PrimaryEmail(),
		PasswordHash: hash,
		CreatedBy:    optional(creatorID),
	}
	if err := r.store.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("%w: create user: %v", ErrReconcile, err)
	}
	return u, nil
}

// refreshUser renames a matched user and gives it email when it has none.
func (r *Reconciler) refreshUser(ctx context.Context, u *member.User, name string, email *string) error {
	changed := false
	if name != "" && name != u.Name {
		u.Name = name
		changed = true
	}
	if u.Email == nil && email != nil {
		u.Email = email
		changed = true
	}
	if !changed {
		return nil
	}
	if err := r.store.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("%w: update user: %v", ErrReconcile, err)
	}
	return nil
}

// discardUser undoes createUser when the row's member could not be stored.
func (r *Reconciler) discardUser(ctx context.Context, u *member.User) {
	if err := r.store.DeleteUser(context.WithoutCancel(ctx), u.ID); err != nil {
		r.log.Error().Err(err).Str("user_id", u.ID).Msg("failed to remove user of a failed row")
	}
}

func (r *Reconciler) createMember(ctx context.Context, row member.CleanedRow, user *member.User, affiliateID *string, creatorID string) (*member.Member, error) {
	m := &member.Member{
		UserID:      user.ID,
		AffiliateID: affiliateID,
		MemberID:    generateMemberID(row.MemberID),
		CreatedBy:   optional(creatorID),
	}
	merge(m, row)
	if err := r.store.CreateMember(ctx, m); err != nil {
		if errors.Is(err, member.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateMember, err)
		}
		return nil, fmt.Errorf("%w: create member: %v", ErrReconcile, err)
	}
	return m, nil
}

// findMember walks member id, work email, home email then the user link when a user is known.
func (r *Reconciler) findMember(ctx context.Context, row member.CleanedRow, user *member.User) (*member.Member, error) {
	type lookup struct {
		label string
		value *string
		find  func(context.Context, string) (*member.Member, error)
	}
	chain := []lookup{
		{"member id", row.MemberID, r.store.FindMemberByMemberID},
		{"work email", row.WorkEmail, r.store.FindMemberByWorkEmail},
		{"home email", row.HomeEmail, r.store.FindMemberByHomeEmail},
	}
	if user != nil {
		chain = append(chain, lookup{"user", &user.ID, r.store.FindMemberByUserID})
	}
	for _, step := range chain {
		if step.value == nil || *step.value == "" {
			continue
		}
		m, err := step.find(ctx, *step.value)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, member.ErrNotFound) {
			return nil, fmt.Errorf("%w: find member by %s: %v", ErrReconcile, step.label, err)
		}
	}
	return nil, nil
}

// checkCollisions catches addresses already stored in the other email column
// of a different member.
func (r *Reconciler) checkCollisions(ctx context.Context, row member.CleanedRow) error {
	checks := []struct {
		value *string
		find  func(context.Context, string) (*member.Member, error)
		label string
	}{
		{row.WorkEmail, r.store.FindMemberByHomeEmail, "work email matches another member's home email"},
		{row.HomeEmail, r.store.FindMemberByWorkEmail, "home email matches another member's work email"},
	}
	for _, c := range checks {
		if c.value == nil {
			continue
		}
		_, err := c.find(ctx, *c.value)
		if err == nil {
			return fmt.Errorf("%w: %s: %s", ErrDuplicateMember, c.label, *c.value)
		}
		if !errors.Is(err, member.ErrNotFound) {
			return fmt.Errorf("%w: collision check: %v", ErrReconcile, err)
		}
	}
	return nil
}

// merge copies every non-empty row value onto m. Absent values never blank
// what is already stored.
func merge(m *member.Member, row member.CleanedRow) {
	set := func(dst **string, v *string) {
		if v != nil && *v != "" {
			*dst = v
		}
	}
	set(&m.FirstName, row.FirstName)
	set(&m.LastName, row.LastName)
	set(&m.WorkEmail, row.WorkEmail)
	set(&m.HomeEmail, row.HomeEmail)
	set(&m.MobilePhone, row.MobilePhone)
	set(&m.HomePhone, row.HomePhone)
	set(&m.WorkPhone, row.WorkPhone)
	set(&m.AddressLine1, row.AddressLine1)
	set(&m.AddressLine2, row.AddressLine2)
	set(&m.City, row.City)
	set(&m.State, row.State)
	set(&m.ZipCode, row.ZipCode)
	set(&m.JobTitle, row.JobTitle)
	set(&m.MemberLevel, row.MemberLevel)
	set(&m.SelfIdentification, row.SelfIdentification)

	// Status columns follow the latest roster whenever it states them.
	if row.MemberStatus != nil {
		m.MemberStatus = row.MemberStatus
	}
	if row.EmploymentStatus != nil {
		m.EmploymentStatus = row.EmploymentStatus
	}
}

func generateMemberID(supplied *string) string {
	if supplied != nil && strings.TrimSpace(*supplied) != "" {
		return strings.TrimSpace(*supplied)
	}
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "M" + strings.ToUpper(hex[:10])
}

// placeholderCredential is never handed out. Login goes through the identity provider.
func placeholderCredential() (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.MinCost)
	if err != nil {
		return "", fmt.Errorf("hash placeholder credential: %w", err)
	}
	return string(hash), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
