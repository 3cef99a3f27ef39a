package models

// PleaType is the complaint category sent with every plea.
const PleaType = "2"

// Form holds the user-supplied complaint fields before validation. Phone
// numbers are plaintext here and nowhere else.
type Form struct {
	OpenID         string
	ComplaintPhone string
	UserPhone      string
	CompanyID      string
	CompanyName    string
	PleaReason     string
	FilePath       string
}

// ComplaintRequest is the metadata body posted to /pleaphone/addPlea. It is
// built fresh for every attempt and discarded afterwards.
type ComplaintRequest struct {
	OpenID      string `json:"openid"`
	PleaType    string `json:"plea_type"`
	PleaPhone   string `json:"plea_phone"`
	CompanyID   string `json:"company_id"`
	CompanyName string `json:"company_name"`
	PleaReason  string `json:"plea_reason"`
	Filename    string `json:"filename"`
	Sign        string `json:"sign"`
}

// SignFields returns the signed fields in wire order. Sign must be computed
// over exactly this sequence after every other field is final.
func (r *ComplaintRequest) SignFields() []string {
	return []string{
		r.OpenID,
		r.PleaType,
		r.PleaPhone,
		r.CompanyID,
		r.CompanyName,
		r.PleaReason,
		r.Filename,
	}
}
