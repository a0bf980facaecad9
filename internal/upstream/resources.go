package upstream

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/url"

	"github.com/martdesk/martdesk/internal/query"
)

// OrdersPage is the upstream orders listing envelope.
type OrdersPage struct {
	Orders []Order `json:"orders"`
	Total  int     `json:"total"`
	Page   int     `json:"page"`
	Limit  int     `json:"limit"`
	Pages  int     `json:"pages"`
}

// ListOrders fetches one page of orders.
func (c *Client) ListOrders(ctx context.Context, token string, p query.Params) (OrdersPage, error) {
	var out OrdersPage
	err := c.get(ctx, token, "/api/orders/get-orders", p.Encode(), &out)
	return out, err
}

// GetOrder fetches a single order.
func (c *Client) GetOrder(ctx context.Context, token, id string) (Order, error) {
	var out struct {
		Order Order `json:"order"`
	}
	err := c.get(ctx, token, "/api/orders/get-order/"+url.PathEscape(id), nil, &out)
	return out.Order, err
}

// ProductsPage is the upstream products listing envelope. It differs in
// shape from the other listings: pagination lives in a nested block.
type ProductsPage struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Pagination struct {
		Total int `json:"total"`
		Page  int `json:"page"`
		Limit int `json:"limit"`
		Pages int `json:"pages"`
	} `json:"pagination"`
	Data []Product `json:"data"`
}

// ListProducts fetches one page of inventory. The upstream parameter for
// the store filter is named "mart" on this endpoint.
func (c *Client) ListProducts(ctx context.Context, token string, p query.Params) (ProductsPage, error) {
	values := p.Encode()
	if mart := values.Get("storeId"); mart != "" {
		values.Del("storeId")
		values.Set("mart", mart)
	}
	var out ProductsPage
	err := c.get(ctx, token, "/api/products/get-products", values, &out)
	return out, err
}

// HistoryPage is the upstream purchase-history listing envelope.
type HistoryPage struct {
	Success    bool             `json:"success"`
	Products   []ProductHistory `json:"products"`
	Summary    HistorySummary   `json:"summary"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"totalPages"`
}

// ListProductHistory fetches one page of purchase history with its
// per-store summary aggregate.
func (c *Client) ListProductHistory(ctx context.Context, token string, p query.Params) (HistoryPage, error) {
	values := p.Encode()
	// This endpoint spells the store parameter with a capital D.
	if id := values.Get("storeId"); id != "" {
		values.Del("storeId")
		values.Set("storeID", id)
	}
	var out HistoryPage
	err := c.get(ctx, token, "/api/product-history/get-all-product-history", values, &out)
	return out, err
}

// UploadProductHistory forwards a validated spreadsheet to the upstream
// ingestion endpoint. Progress is reported as 0-100 from transferred vs
// total multipart bytes.
func (c *Client) UploadProductHistory(ctx context.Context, token, storeID, filename string, file io.Reader, progress func(pct int)) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	if err := writer.WriteField("storeID", storeID); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	reader := io.Reader(body)
	if progress != nil {
		reader = &progressReader{r: body, total: int64(body.Len()), report: progress}
	}

	var out struct {
		Message string `json:"message"`
	}
	if err := c.postMultipart(ctx, token, "/api/product-history/upload-product-history", reader, writer.FormDataContentType(), &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// ListStores fetches every store visible to the caller.
func (c *Client) ListStores(ctx context.Context, token string) ([]Store, error) {
	var out struct {
		Data []Store `json:"data"`
	}
	err := c.get(ctx, token, "/api/stores/get-all-store", nil, &out)
	return out.Data, err
}

// CreateStoreInput carries the store creation form. Credentials are
// write-only: they are submitted here and never read back.
type CreateStoreInput struct {
	Name         string
	Email        string
	ClientID     string
	ClientSecret string
	ImageName    string
	Image        io.Reader
}

// CreateStore submits the multipart store creation form.
func (c *Client) CreateStore(ctx context.Context, token string, input CreateStoreInput) (Store, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fields := map[string]string{
		"name":         input.Name,
		"email":        input.Email,
		"clientId":     input.ClientID,
		"clientSecret": input.ClientSecret,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return Store{}, err
		}
	}
	if input.Image != nil {
		part, err := writer.CreateFormFile("image", input.ImageName)
		if err != nil {
			return Store{}, err
		}
		if _, err := io.Copy(part, input.Image); err != nil {
			return Store{}, err
		}
	}
	if err := writer.Close(); err != nil {
		return Store{}, err
	}

	var out struct {
		Data    Store  `json:"data"`
		Message string `json:"message"`
	}
	if err := c.postMultipart(ctx, token, "/api/stores/create-store", body, writer.FormDataContentType(), &out); err != nil {
		return Store{}, err
	}
	return out.Data, nil
}

// DeleteStore removes a store by ID.
func (c *Client) DeleteStore(ctx context.Context, token, id string) error {
	return c.delete(ctx, token, "/api/stores/store-delete/"+url.PathEscape(id), nil)
}

// FailedUploadsPage is the upstream failed-uploads listing envelope.
type FailedUploadsPage struct {
	Success              bool           `json:"success"`
	FailedUploadsResults []FailedUpload `json:"failedUploadsResults"`
	Total                int            `json:"total"`
	Page                 int            `json:"page"`
	Limit                int            `json:"limit"`
	Pages                int            `json:"pages"`
}

// ListFailedUploads fetches one page of rejected ingestion rows.
func (c *Client) ListFailedUploads(ctx context.Context, token string, p query.Params) (FailedUploadsPage, error) {
	var out FailedUploadsPage
	err := c.get(ctx, token, "/api/error/get-all-fail-uploads-results", p.Encode(), &out)
	return out, err
}

// CustomersPage is the upstream customers listing envelope.
type CustomersPage struct {
	Customers []Customer `json:"customers"`
	Total     int        `json:"total"`
	Page      int        `json:"page"`
	Limit     int        `json:"limit"`
	Pages     int        `json:"pages"`
}

// ListCustomers fetches one page of customers.
func (c *Client) ListCustomers(ctx context.Context, token string, p query.Params) (CustomersPage, error) {
	var out CustomersPage
	err := c.get(ctx, token, "/api/customers/get-customers", p.Encode(), &out)
	return out, err
}

// LoginResult carries the upstream login response.
type LoginResult struct {
	User    User   `json:"user"`
	Token   string `json:"token"`
	Message string `json:"message"`
}

// Login authenticates against the upstream API.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var out LoginResult
	err := c.postJSON(ctx, "", "/api/users/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	return out, err
}

// GetProfile fetches the caller's profile.
func (c *Client) GetProfile(ctx context.Context, token string) (User, error) {
	var out struct {
		User User `json:"user"`
	}
	err := c.get(ctx, token, "/api/users/me", nil, &out)
	return out.User, err
}

// UpdateProfileInput is the wholesale profile re-submission.
type UpdateProfileInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image,omitempty"`
}

// UpdateProfile re-submits the locally edited profile copy.
func (c *Client) UpdateProfile(ctx context.Context, token string, input UpdateProfileInput) (User, error) {
	var out struct {
		User    User   `json:"user"`
		Message string `json:"message"`
	}
	err := c.putJSON(ctx, token, "/api/users/update-profile", input, &out)
	return out.User, err
}

// progressReader reports transfer progress while the request body drains.
type progressReader struct {
	r      io.Reader
	total  int64
	sent   int64
	last   int
	report func(pct int)
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.sent += int64(n)
		pct := 100
		if p.total > 0 {
			pct = int(p.sent * 100 / p.total)
		}
		if pct > 100 {
			pct = 100
		}
		if pct != p.last {
			p.last = pct
			p.report(pct)
		}
	}
	return n, err
}
