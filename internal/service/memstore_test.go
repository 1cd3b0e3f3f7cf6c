package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/shop-management/internal/model"
	"github.com/iliyamo/shop-management/internal/repository"
)

// In-memory stores with the same uniqueness rules as the MySQL schema.

func matches(term string, fields ...string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func window[T any](items []T, lq repository.ListQuery) []T {
	if lq.Offset >= len(items) {
		return []T{}
	}
	end := lq.Offset + lq.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[lq.Offset:end]
}

type memCatalog struct {
	mu   sync.Mutex
	kind model.Kind
	rows []*model.Entity
	seq  uint64
}

func newMemCatalog(kind model.Kind) *memCatalog { return &memCatalog{kind: kind} }

func (m *memCatalog) Kind() model.Kind { return m.kind }

func (m *memCatalog) Create(_ context.Context, e *model.Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.ShopID == e.ShopID && r.Name == e.Name {
			return repository.ErrConflict
		}
	}
	m.seq++
	e.ID = m.seq
	cp := *e
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memCatalog) List(_ context.Context, lq repository.ListQuery) ([]*model.Entity, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var hits []*model.Entity
	for _, r := range m.rows {
		if lq.ShopID != "" && r.ShopID != lq.ShopID {
			continue
		}
		if !matches(lq.Search, r.Name, r.Slug, r.EntityID, r.ShopID) {
			continue
		}
		hits = append(hits, r)
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Name < hits[j].Name })
	return window(hits, lq), len(hits), nil
}

func (m *memCatalog) FindByParam(_ context.Context, param, shopID string) (*model.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if (shopID == "" || r.ShopID == shopID) && (r.EntityID == param || r.Name == param || r.Slug == param) {
			return r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memCatalog) FindByID(_ context.Context, id uint64, shopID string) (*model.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.ID == id && (shopID == "" || r.ShopID == shopID) {
			return r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memCatalog) DeleteMany(_ context.Context, ids []string, shopID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	drop := map[string]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	var kept []*model.Entity
	var n int64
	for _, r := range m.rows {
		if drop[r.EntityID] && (shopID == "" || r.ShopID == shopID) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.rows = kept
	return n, nil
}

func (m *memCatalog) Rename(_ context.Context, id uint64, name, slug, updatedBy string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var target *model.Entity
	for _, r := range m.rows {
		if r.ID == id {
			target = r
		}
	}
	if target == nil {
		return 0, nil
	}
	for _, r := range m.rows {
		if r.ID != id && r.ShopID == target.ShopID && r.Name == name {
			return 0, repository.ErrConflict
		}
	}
	target.Name, target.Slug, target.UpdatedBy = name, slug, updatedBy
	target.UpdatedAt = &at
	return 1, nil
}

type memProducts struct {
	mu   sync.Mutex
	rows []*model.Product
	seq  uint64
}

func (m *memProducts) Create(_ context.Context, p *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.ShopID == p.ShopID && r.ProductTitleSlug == p.ProductTitleSlug {
			return repository.ErrConflict
		}
	}
	m.seq++
	p.ID = m.seq
	cp := *p
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memProducts) List(_ context.Context, lq repository.ListQuery) ([]*model.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var hits []*model.Product
	for _, r := range m.rows {
		if (lq.ShopID == "" || r.ShopID == lq.ShopID) && matches(lq.Search, r.ProductTitle, r.ProductName, r.Category) {
			hits = append(hits, r)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].ProductName < hits[j].ProductName })
	return window(hits, lq), len(hits), nil
}

func (m *memProducts) FindByParam(_ context.Context, param, shopID string) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if (shopID == "" || r.ShopID == shopID) &&
			(r.ProductID == param || r.ProductTitle == param || r.ProductTitleSlug == param) {
			return r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memProducts) FindByID(_ context.Context, id uint64, shopID string) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.ID == id && (shopID == "" || r.ShopID == shopID) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memProducts) DeleteMany(_ context.Context, ids []string, shopID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	drop := map[string]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	var kept []*model.Product
	var n int64
	for _, r := range m.rows {
		if drop[r.ProductID] && (shopID == "" || r.ShopID == shopID) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.rows = kept
	return n, nil
}

func (m *memProducts) Update(_ context.Context, id uint64, changes []repository.ProductChange, updatedBy string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var p *model.Product
	for _, r := range m.rows {
		if r.ID == id {
			p = r
		}
	}
	if p == nil {
		return 0, nil
	}
	next := *p
	for _, c := range changes {
		switch c.Column {
		case repository.ProductColName:
			next.ProductName = c.Value.(string)
		case repository.ProductColTitle:
			next.ProductTitle = c.Value.(string)
		case repository.ProductColTitleSlug:
			next.ProductTitleSlug = c.Value.(string)
		case repository.ProductColGroupName:
			next.GroupName = c.Value.(string)
		case repository.ProductColSupplier:
			next.Supplier = c.Value.(string)
		case repository.ProductColCategory:
			next.Category = c.Value.(string)
		case repository.ProductColWeightOrSize:
			next.WeightOrSize = c.Value.(string)
		case repository.ProductColType:
			next.ProductType = c.Value.(string)
		case repository.ProductColDiscountOption:
			next.DiscountOption = c.Value.(bool)
		case repository.ProductColPurchasePrice:
			next.PurchasePrice = c.Value.(float64)
		case repository.ProductColSellPrice:
			next.SellPrice = c.Value.(float64)
		case repository.ProductColStockLeft:
			next.StockLeft = c.Value.(int64)
		}
	}
	for _, r := range m.rows {
		if r.ID != id && r.ShopID == next.ShopID && r.ProductTitleSlug == next.ProductTitleSlug {
			return 0, repository.ErrConflict
		}
	}
	next.UpdatedBy = updatedBy
	next.UpdatedAt = &at
	*p = next
	return 1, nil
}

// memAccounts holds shops and users together so activation can enforce
// the unique shop name, email and username atomically.
type memAccounts struct {
	mu    sync.Mutex
	shops map[string]*model.Shop
	users []*model.User
	seq   uint64

	expiredWrites chan string // receives shop ids marked expired, if set
}

func newMemAccounts() *memAccounts {
	return &memAccounts{shops: map[string]*model.Shop{}}
}

func (m *memAccounts) CreateShopWithOwner(_ context.Context, shop *model.Shop, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.shops {
		if s.ShopName == shop.ShopName {
			return repository.ErrConflict
		}
	}
	for _, u := range m.users {
		if u.Email == user.Email || u.Username == user.Username {
			return repository.ErrConflict
		}
	}
	m.seq++
	shop.ID, user.ID = m.seq, m.seq
	sc, uc := *shop, *user
	m.shops[shop.ShopID] = &sc
	m.users = append(m.users, &uc)
	return nil
}

// addShop stores a shop directly.
func (m *memAccounts) addShop(s *model.Shop) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	s.ID = m.seq
	m.shops[s.ShopID] = s
}

func (m *memAccounts) shop(shopID string) model.Shop {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.shops[shopID]
}

func (m *memAccounts) FindByShopID(_ context.Context, shopID string) (*model.Shop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shops[shopID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memAccounts) FindByParam(_ context.Context, param, scope string) (*model.Shop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.shops {
		if (scope == "" || s.ShopID == scope) && (s.ShopID == param || s.ShopName == param || s.ShopSlug == param) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memAccounts) NameExists(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.shops {
		if s.ShopName == name {
			return true, nil
		}
	}
	return false, nil
}

func (m *memAccounts) List(_ context.Context, lq repository.ListQuery) ([]*model.Shop, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var hits []*model.Shop
	for _, s := range m.shops {
		if (lq.ShopID == "" || s.ShopID == lq.ShopID) && matches(lq.Search, s.ShopID, s.ShopName, s.ShopSlug, s.CreatedBy) {
			hits = append(hits, s)
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].ShopName < hits[j].ShopName })
	return window(hits, lq), len(hits), nil
}

func (m *memAccounts) MarkExpired(_ context.Context, shopID string) error {
	m.mu.Lock()
	if s, ok := m.shops[shopID]; ok {
		s.SubscriptionExpired = true
		s.SubscriptionInfo.TrialOver = s.SubscriptionInfo.TrialOver || s.SubscriptionInfo.TrialRunning
		s.SubscriptionInfo.TrialRunning = false
	}
	ch := m.expiredWrites
	m.mu.Unlock()
	if ch != nil {
		ch <- shopID
	}
	return nil
}

func (m *memAccounts) UpdateSubscription(_ context.Context, shopID string, si model.SubscriptionInfo, updatedBy string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shops[shopID]
	if !ok {
		return repository.ErrNotFound
	}
	s.SubscriptionInfo = si
	s.SubscriptionExpired = false
	s.UpdatedBy = updatedBy
	s.UpdatedAt = &at
	return nil
}

// userStore is the UserStore view of memAccounts.
type userStore struct{ *memAccounts }

func (u userStore) FindByLogin(_ context.Context, login string) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, x := range u.users {
		if x.Username == login || x.Email == login {
			cp := *x
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (u userStore) FindByUserID(_ context.Context, userID, shopID string) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, x := range u.users {
		if x.UserID == userID && (shopID == "" || x.ShopID == shopID) {
			cp := *x
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (u userStore) Exists(_ context.Context, email, username string) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, x := range u.users {
		if x.Email == email || x.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (u userStore) List(_ context.Context, lq repository.ListQuery) ([]*model.User, int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	var hits []*model.User
	for _, x := range u.users {
		if (lq.ShopID == "" || x.ShopID == lq.ShopID) && matches(lq.Search, x.Name, x.Username, x.Email) {
			hits = append(hits, x)
		}
	}
	return window(hits, lq), len(hits), nil
}

func (u userStore) Delete(_ context.Context, userID string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	for i, x := range u.users {
		if x.UserID == userID {
			u.users = append(u.users[:i], u.users[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

// setUser mutates a stored user in place.
func (m *memAccounts) setUser(username string, fn func(*model.User)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.users {
		if x.Username == username {
			fn(x)
		}
	}
}

type memPlans struct {
	mu   sync.Mutex
	rows []*model.SubscriptionPlan
}

func (m *memPlans) Create(_ context.Context, p *model.SubscriptionPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.PlanName == p.PlanName {
			return repository.ErrConflict
		}
	}
	p.ID = uint64(len(m.rows) + 1)
	m.rows = append(m.rows, p)
	return nil
}

func (m *memPlans) List(context.Context) ([]*model.SubscriptionPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.SubscriptionPlan(nil), m.rows...), nil
}

func (m *memPlans) FindByPlanID(_ context.Context, planID string) (*model.SubscriptionPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.PlanID == planID {
			return r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memPlans) FindByParam(ctx context.Context, param string) (*model.SubscriptionPlan, error) {
	return m.FindByPlanID(ctx, param)
}

type memPayments struct {
	mu   sync.Mutex
	rows []*model.Payment
	err  error
}

func (m *memPayments) Insert(_ context.Context, p *model.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	p.ID = "pay-" + string(rune('a'+len(m.rows)))
	m.rows = append(m.rows, p)
	return nil
}

func (m *memPayments) ListByShop(_ context.Context, shopID string) ([]*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Payment
	for _, p := range m.rows {
		if shopID == "" || p.ShopID == shopID {
			out = append(out, p)
		}
	}
	return out, nil
}
