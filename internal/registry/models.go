package registry

import (
	"strings"
	"time"

	"property-registry/internal/activity"
)

// Owner is a property owner record.
type Owner struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Address   string    `json:"address" db:"address"`
	Phone     string    `json:"phone" db:"phone"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Property is an asset record. Files are descriptors of objects held in an
// external store; they are carried but never diffed.
type Property struct {
	ID          string    `json:"id" db:"id"`
	OwnerID     string    `json:"ownerId" db:"owner_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Address     string    `json:"address" db:"address"`
	MapLink     string    `json:"mapLink" db:"map_link"`
	Files       []File    `json:"files" db:"files"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

type File struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Type       string    `json:"type"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Field names as they appear in activity log changes.
const (
	FieldName        = "name"
	FieldAddress     = "address"
	FieldPhone       = "phone"
	FieldEmail       = "email"
	FieldOwnerID     = "ownerId"
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldMapLink     = "mapLink"
	FieldFiles       = activity.FieldFiles
)

var (
	ownerSnapshotFields    = []string{FieldName, FieldAddress, FieldPhone, FieldEmail}
	propertySnapshotFields = []string{FieldTitle, FieldDescription, FieldAddress, FieldOwnerID}
)

func (o Owner) Snapshot() activity.Snapshot {
	return activity.Snapshot{
		FieldName:    o.Name,
		FieldAddress: o.Address,
		FieldPhone:   o.Phone,
		FieldEmail:   o.Email,
	}
}

func (p Property) Snapshot() activity.Snapshot {
	return activity.Snapshot{
		FieldOwnerID:     p.OwnerID,
		FieldTitle:       p.Title,
		FieldDescription: p.Description,
		FieldAddress:     p.Address,
		FieldMapLink:     p.MapLink,
		FieldFiles:       p.Files,
	}
}

type OwnerInput struct {
	Name    string `json:"name" binding:"required,max=200"`
	Address string `json:"address" binding:"max=500"`
	Phone   string `json:"phone" binding:"max=50"`
	Email   string `json:"email" binding:"omitempty,email"`
}

func (in *OwnerInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
}

// OwnerPatch is a partial update; nil fields are left untouched.
type OwnerPatch struct {
	Name    *string `json:"name" binding:"omitempty,max=200"`
	Address *string `json:"address" binding:"omitempty,max=500"`
	Phone   *string `json:"phone" binding:"omitempty,max=50"`
	Email   *string `json:"email" binding:"omitempty,email"`
}

func (p OwnerPatch) apply(o *Owner) {
	setTrimmed(&o.Name, p.Name)
	setTrimmed(&o.Address, p.Address)
	setTrimmed(&o.Phone, p.Phone)
	setTrimmed(&o.Email, p.Email)
}

func (p OwnerPatch) fields() activity.Patch {
	var out activity.Patch
	out = addField(out, FieldName, p.Name)
	out = addField(out, FieldAddress, p.Address)
	out = addField(out, FieldPhone, p.Phone)
	out = addField(out, FieldEmail, p.Email)
	return out
}

type PropertyInput struct {
	OwnerID     string `json:"ownerId" binding:"required"`
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description"`
	Address     string `json:"address" binding:"max=500"`
	MapLink     string `json:"mapLink" binding:"omitempty,url"`
	Files       []File `json:"files"`
}

func (in *PropertyInput) normalize() {
	in.OwnerID = strings.TrimSpace(in.OwnerID)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Address = strings.TrimSpace(in.Address)
	in.MapLink = strings.TrimSpace(in.MapLink)
}

type PropertyPatch struct {
	OwnerID     *string `json:"ownerId"`
	Title       *string `json:"title" binding:"omitempty,max=200"`
	Description *string `json:"description"`
	Address     *string `json:"address" binding:"omitempty,max=500"`
	MapLink     *string `json:"mapLink" binding:"omitempty,url"`
	Files       *[]File `json:"files"`
}

func (p PropertyPatch) apply(pr *Property) {
	setTrimmed(&pr.OwnerID, p.OwnerID)
	setTrimmed(&pr.Title, p.Title)
	setTrimmed(&pr.Description, p.Description)
	setTrimmed(&pr.Address, p.Address)
	setTrimmed(&pr.MapLink, p.MapLink)
	if p.Files != nil {
		pr.Files = append([]File(nil), (*p.Files)...)
	}
}

func (p PropertyPatch) fields() activity.Patch {
	var out activity.Patch
	out = addField(out, FieldOwnerID, p.OwnerID)
	out = addField(out, FieldTitle, p.Title)
	out = addField(out, FieldDescription, p.Description)
	out = addField(out, FieldAddress, p.Address)
	out = addField(out, FieldMapLink, p.MapLink)
	if p.Files != nil {
		out = out.Set(FieldFiles, *p.Files)
	}
	return out
}

func setTrimmed(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func addField(p activity.Patch, field string, v *string) activity.Patch {
	if v == nil {
		return p
	}
	return p.Set(field, strings.TrimSpace(*v))
}

// PropertyFilter narrows ListProperties. Empty fields are ignored.
type PropertyFilter struct {
	OwnerID string `form:"owner_id"`
	Search  string `form:"search"`
}

// Dashboard is the landing-page summary.
type Dashboard struct {
	Owners        int              `json:"owners"`
	Properties    int              `json:"properties"`
	TodayActivity int              `json:"todayActivity"`
	Recent        []activity.Entry `json:"recent"`
}
