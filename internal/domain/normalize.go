package domain

import "encoding/json"

// UserRef is a reference to a user that tolerates both wire shapes the API
// produces: a bare id string ("u1") or an embedded user object
// ({"_id":"u1","username":"amy"}). Internal code must only ever compare ids,
// so every ingestion boundary decodes into UserRef and reads ID.
type UserRef struct {
	ID           string
	Username     string
	ProfileImage string
}

// Ref builds a bare-id reference.
func Ref(id string) UserRef {
	return UserRef{ID: id}
}

func (r UserRef) Is(id string) bool {
	return r.ID != "" && r.ID == id
}

func (r *UserRef) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*r = UserRef{ID: id}
		return nil
	}
	var obj struct {
		MongoID      string `json:"_id"`
		ID           string `json:"id"`
		Username     string `json:"username"`
		ProfileImage string `json:"profileImage"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	out := UserRef{
		ID:           obj.MongoID,
		Username:     obj.Username,
		ProfileImage: obj.ProfileImage,
	}
	if out.ID == "" {
		out.ID = obj.ID
	}
	*r = out
	return nil
}

// MarshalJSON emits the object form when user fields are known, otherwise
// the bare id. Round-tripping either form preserves the id.
func (r UserRef) MarshalJSON() ([]byte, error) {
	if r.Username == "" && r.ProfileImage == "" {
		return json.Marshal(r.ID)
	}
	return json.Marshal(struct {
		ID           string `json:"_id"`
		Username     string `json:"username,omitempty"`
		ProfileImage string `json:"profileImage,omitempty"`
	}{r.ID, r.Username, r.ProfileImage})
}
