package scraper

import (
	"reflect"
	"testing"

	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/aluiziolira/go-scrape-catalog/parser"
)

func catalogOf(ids ...int) *models.ProductMap {
	m := models.NewProductMap()
	for _, id := range ids {
		m.Put(&models.Product{ID: id, Title: "product"})
	}
	return m
}

func entry(active int, variants ...int) parser.PriceInfo {
	info := parser.PriceInfo{ActiveOfferID: parser.Int(active)}
	for _, id := range variants {
		info.Variants = append(info.Variants, parser.VariantPrice{
			ID: parser.Int(id),
			Price: parser.PricePayload{
				Actual:                      parser.Int(id * 100),
				SingleItemPackDiscountPrice: parser.Int(id * 90),
			},
		})
	}
	return info
}

func list(entries ...parser.PriceInfo) *parser.PriceList {
	return &parser.PriceList{Products: entries}
}

func variantIDs(p *models.Product) []int {
	ids := make([]int, 0, len(p.Variants))
	for _, v := range p.Variants {
		ids = append(ids, v.ID)
	}
	return ids
}

func assertHierarchy(t *testing.T, hierarchy *models.ProductMap) {
	t.Helper()
	for _, parent := range hierarchy.Values() {
		for _, v := range parent.Variants {
			if hierarchy.Has(v.ID) {
				t.Fatalf("product %d is both top-level and a variant of %d", v.ID, parent.ID)
			}
			if v.ID == parent.ID {
				t.Fatalf("product %d lists itself as a variant", v.ID)
			}
		}
	}
}

func TestReconcileGroupsVariants(t *testing.T) {
	products := catalogOf(1, 2, 3)
	lists := []*parser.PriceList{
		list(entry(1, 1, 2)),
		list(entry(3, 3)),
	}

	hierarchy := Reconcile(products, lists, ReconcileOptions{})
	assertHierarchy(t, hierarchy)

	if got := hierarchy.IDs(); !reflect.DeepEqual(got, []int{1, 3}) {
		t.Fatalf("top-level = %v, want [1 3]", got)
	}
	one, _ := hierarchy.Get(1)
	if got := variantIDs(one); !reflect.DeepEqual(got, []int{2}) {
		t.Fatalf("variants of 1 = %v, want [2]", got)
	}
	if one.Price == nil || one.Price.RegularPrice != 100 {
		t.Fatalf("price of 1 = %+v", one.Price)
	}
	if v := one.Variants[0]; v.Price == nil || v.Price.PromoPrice != 180 {
		t.Fatalf("price of 2 = %+v", v.Price)
	}
	three, _ := hierarchy.Get(3)
	if three.Price == nil || three.Price.RegularPrice != 300 || len(three.Variants) != 0 {
		t.Fatalf("product 3 = %+v", three)
	}
}

func TestReconcileParentWithoutSelfEntry(t *testing.T) {
	lists := []*parser.PriceList{list(entry(1, 2), entry(3, 3))}

	faithful := Reconcile(catalogOf(1, 2, 3), lists, ReconcileOptions{})
	if got := faithful.IDs(); !reflect.DeepEqual(got, []int{3}) {
		t.Fatalf("faithful top-level = %v, want [3]", got)
	}

	promoted := Reconcile(catalogOf(1, 2, 3), lists, ReconcileOptions{PromoteParents: true})
	assertHierarchy(t, promoted)
	if got := promoted.IDs(); !reflect.DeepEqual(got, []int{1, 3}) {
		t.Fatalf("promoted top-level = %v, want [1 3]", got)
	}
	one, _ := promoted.Get(1)
	if one.Price != nil {
		t.Fatalf("parent without self entry must stay unpriced")
	}
	if got := variantIDs(one); !reflect.DeepEqual(got, []int{2}) {
		t.Fatalf("variants of 1 = %v", got)
	}
}

func exportedIDs(hierarchy *models.ProductMap) []int {
	records := models.Flatten(hierarchy.Values())
	ids := make([]int, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestReconcileKeepsRegisteredProductTopLevel(t *testing.T) {
	products := catalogOf(1, 2)
	lists := []*parser.PriceList{
		list(entry(2, 2)),
		list(entry(1, 1, 2)),
	}

	hierarchy := Reconcile(products, lists, ReconcileOptions{})
	assertHierarchy(t, hierarchy)
	if got := hierarchy.IDs(); !reflect.DeepEqual(got, []int{2, 1}) {
		t.Fatalf("top-level = %v, want [2 1]", got)
	}
	if got := exportedIDs(hierarchy); !reflect.DeepEqual(got, []int{2, 1}) {
		t.Fatalf("exported = %v, want [2 1]", got)
	}
}

func TestReconcileMutuallyReferencingGroups(t *testing.T) {
	products := catalogOf(1, 2)
	lists := []*parser.PriceList{
		list(entry(1, 1, 2)),
		list(entry(2, 2, 1)),
	}

	hierarchy := Reconcile(products, lists, ReconcileOptions{})
	assertHierarchy(t, hierarchy)
	if got := exportedIDs(hierarchy); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatalf("exported = %v, want [1 2]", got)
	}
}

func TestReconcileKeepsVariantsOfNestedGroup(t *testing.T) {
	tests := []struct {
		name  string
		lists []*parser.PriceList
		want  []int
	}{
		{
			name:  "group priced first",
			lists: []*parser.PriceList{list(entry(2, 2, 3)), list(entry(1, 1, 2))},
			want:  []int{2, 3, 1},
		},
		{
			name:  "group priced last",
			lists: []*parser.PriceList{list(entry(1, 1, 2)), list(entry(2, 2, 3))},
			want:  []int{1, 2, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products := catalogOf(1, 2, 3)
			hierarchy := Reconcile(products, tt.lists, ReconcileOptions{})
			assertHierarchy(t, hierarchy)

			got := exportedIDs(hierarchy)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("exported = %v, want %v", got, tt.want)
			}
			for _, id := range []int{1, 2, 3} {
				if p, _ := products.Get(id); p.Price == nil {
					t.Fatalf("product %d left unpriced", id)
				}
			}
		})
	}
}

func TestReconcileSkipsUnknownIDs(t *testing.T) {
	products := catalogOf(1)
	lists := []*parser.PriceList{
		list(entry(99, 99, 1)),
		list(entry(1, 1, 98)),
	}

	hierarchy := Reconcile(products, lists, ReconcileOptions{})
	if got := hierarchy.IDs(); !reflect.DeepEqual(got, []int{1}) {
		t.Fatalf("top-level = %v, want [1]", got)
	}
	one, _ := hierarchy.Get(1)
	if len(one.Variants) != 0 {
		t.Fatalf("unknown variant must be skipped: %v", variantIDs(one))
	}
}

func TestReconcileLaterPriceWins(t *testing.T) {
	products := catalogOf(1, 2)
	second := entry(1, 1, 2)
	second.Variants[1].Price.Actual = 777

	lists := []*parser.PriceList{
		list(entry(1, 1, 2)),
		list(second),
	}

	hierarchy := Reconcile(products, lists, ReconcileOptions{})
	one, _ := hierarchy.Get(1)
	if got := variantIDs(one); !reflect.DeepEqual(got, []int{2}) {
		t.Fatalf("variant appended more than once: %v", got)
	}
	if one.Variants[0].Price.RegularPrice != 777 {
		t.Fatalf("price = %+v, want overwrite by later chunk", one.Variants[0].Price)
	}
}

func TestReconcileDropsUntouchedProducts(t *testing.T) {
	products := catalogOf(1, 2, 3)
	lists := []*parser.PriceList{nil, list(entry(2, 2)), nil}

	hierarchy := Reconcile(products, lists, ReconcileOptions{})
	if got := hierarchy.IDs(); !reflect.DeepEqual(got, []int{2}) {
		t.Fatalf("top-level = %v, want [2]", got)
	}
	if p, _ := products.Get(1); p.Price != nil {
		t.Fatalf("untouched product must stay unpriced")
	}
}
