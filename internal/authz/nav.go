package authz

// Permission names used by the dashboard. Granted sets come from the
// upstream user record; these constants only name the gates.
const (
	PermOrderView        = "order:view"
	PermProductView      = "product:view"
	PermHistoryView      = "product-history:view"
	PermHistoryUpload    = "product-history:upload"
	PermStoreView        = "store:view"
	PermStoreManage      = "store:manage"
	PermCustomerView     = "customer:view"
	PermFailedUploadView = "failed-upload:view"
	PermUserManage       = "user:manage"
)

// NavEntry is one sidebar item with its required permission set. An empty
// requirement set means the entry is always shown; otherwise the user must
// hold at least one of the listed permissions.
type NavEntry struct {
	Label    string   `json:"label"`
	Path     string   `json:"path"`
	Icon     string   `json:"icon"`
	Requires []string `json:"-"`
}

// Menu is the declarative sidebar, in display order.
var Menu = []NavEntry{
	{Label: "Dashboard", Path: "/dashboard", Icon: "home"},
	{Label: "Orders", Path: "/orders", Icon: "shopping-cart", Requires: []string{PermOrderView}},
	{Label: "Inventory", Path: "/products", Icon: "package", Requires: []string{PermProductView}},
	{Label: "Purchase History", Path: "/product-history", Icon: "clock", Requires: []string{PermHistoryView, PermHistoryUpload}},
	{Label: "Stores", Path: "/stores", Icon: "store", Requires: []string{PermStoreView, PermStoreManage}},
	{Label: "Customers", Path: "/customers", Icon: "users", Requires: []string{PermCustomerView}},
	{Label: "Failed Uploads", Path: "/failed-uploads", Icon: "alert-triangle", Requires: []string{PermFailedUploadView}},
	{Label: "Users", Path: "/users", Icon: "user-cog", Requires: []string{PermUserManage}},
}

// VisibleFor filters the menu down to the entries the permission set may
// see. Visibility is always ANY-of.
func VisibleFor(granted []string) []NavEntry {
	visible := make([]NavEntry, 0, len(Menu))
	for _, entry := range Menu {
		if Allow(granted, entry.Requires, Any) {
			visible = append(visible, entry)
		}
	}
	return visible
}
