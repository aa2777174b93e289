package httpapi

import (
	"context"
	"time"

	"github.com/oapi-codegen/nullable"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/bodyforce/admin-api/internal/app/auth"
	"github.com/bodyforce/admin-api/internal/app/members"
	"github.com/bodyforce/admin-api/internal/app/payments"
	"github.com/bodyforce/admin-api/internal/app/presences"
	"github.com/bodyforce/admin-api/internal/app/stats"
	"github.com/bodyforce/admin-api/internal/domain"
)

// Requests.

type CreateMemberRequest struct {
	Name             string              `json:"name" validate:"required,max=200"`
	FirstName        string              `json:"firstName" validate:"required,max=200"`
	Birthdate        *openapi_types.Date `json:"birthdate,omitempty"`
	Gender           string              `json:"gender,omitempty" validate:"omitempty,oneof=Homme Femme"`
	Address          string              `json:"address,omitempty"`
	Phone            string              `json:"phone,omitempty"`
	Mobile           string              `json:"mobile,omitempty"`
	Email            string              `json:"email,omitempty" validate:"omitempty,email"`
	SubscriptionType string              `json:"subscriptionType,omitempty"`
	StartDate        *openapi_types.Date `json:"startDate,omitempty"`
	EndDate          *openapi_types.Date `json:"endDate,omitempty"`
	BadgeID          string              `json:"badgeId,omitempty" validate:"max=64"`
	Photo            string              `json:"photo,omitempty"`
	Etudiant         bool                `json:"etudiant,omitempty"`
}

// UpdateMemberRequest is a JSON merge patch: omitted fields are left alone,
// null clears the field.
type UpdateMemberRequest struct {
	Name             nullable.Nullable[string]             `json:"name,omitempty"`
	FirstName        nullable.Nullable[string]             `json:"firstName,omitempty"`
	Birthdate        nullable.Nullable[openapi_types.Date] `json:"birthdate,omitempty"`
	Gender           nullable.Nullable[string]             `json:"gender,omitempty"`
	Address          nullable.Nullable[string]             `json:"address,omitempty"`
	Phone            nullable.Nullable[string]             `json:"phone,omitempty"`
	Mobile           nullable.Nullable[string]             `json:"mobile,omitempty"`
	Email            nullable.Nullable[string]             `json:"email,omitempty"`
	SubscriptionType nullable.Nullable[string]             `json:"subscriptionType,omitempty"`
	StartDate        nullable.Nullable[openapi_types.Date] `json:"startDate,omitempty"`
	EndDate          nullable.Nullable[openapi_types.Date] `json:"endDate,omitempty"`
	BadgeID          nullable.Nullable[string]             `json:"badgeId,omitempty"`
	Photo            nullable.Nullable[string]             `json:"photo,omitempty"`
	Etudiant         nullable.Nullable[bool]               `json:"etudiant,omitempty"`
}

type RenewMemberRequest struct {
	StartDate *openapi_types.Date `json:"startDate,omitempty"`
}

type RecordPresenceRequest struct {
	BadgeID   string     `json:"badgeId" validate:"required,max=64"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type CreatePaymentRequest struct {
	MemberID          string              `json:"memberId" validate:"required"`
	Amount            *float64            `json:"amount" validate:"required"`
	IsPaid            bool                `json:"isPaid,omitempty"`
	EncaissementPrevu *openapi_types.Date `json:"encaissementPrevu,omitempty"`
	Method            string              `json:"method,omitempty"`
	Comment           string              `json:"comment,omitempty" validate:"max=2000"`
}

type UpdatePaymentRequest struct {
	Amount            nullable.Nullable[float64]            `json:"amount,omitempty"`
	IsPaid            nullable.Nullable[bool]               `json:"isPaid,omitempty"`
	EncaissementPrevu nullable.Nullable[openapi_types.Date] `json:"encaissementPrevu,omitempty"`
	Method            nullable.Nullable[string]             `json:"method,omitempty"`
	Comment           nullable.Nullable[string]             `json:"comment,omitempty"`
}

type MarkPaidRequest struct {
	IsPaid *bool `json:"isPaid" validate:"required"`
}

type CredentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AcceptInvitationRequest struct {
	Password string `json:"password" validate:"required"`
}

// Responses.

type MemberFileJSON struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Path string `json:"path"`
}

type InvitationJSON struct {
	Status     string     `json:"status"`
	SentAt     *time.Time `json:"sentAt"`
	ExpiresAt  *time.Time `json:"expiresAt"`
	AcceptedAt *time.Time `json:"acceptedAt"`
}

type MemberJSON struct {
	ID               string                                `json:"id"`
	Name             string                                `json:"name"`
	FirstName        string                                `json:"firstName"`
	Birthdate        nullable.Nullable[openapi_types.Date] `json:"birthdate"`
	Gender           string                                `json:"gender"`
	Address          string                                `json:"address"`
	Phone            string                                `json:"phone"`
	Mobile           string                                `json:"mobile"`
	Email            string                                `json:"email"`
	SubscriptionType string                                `json:"subscriptionType"`
	StartDate        nullable.Nullable[openapi_types.Date] `json:"startDate"`
	EndDate          nullable.Nullable[openapi_types.Date] `json:"endDate"`
	IsExpired        bool                                  `json:"isExpired"`
	BadgeID          string                                `json:"badgeId"`
	Files            []MemberFileJSON                      `json:"files"`
	Photo            string                                `json:"photo"`
	PhotoURL         string                                `json:"photoUrl"`
	Etudiant         bool                                  `json:"etudiant"`
	Invitation       InvitationJSON                        `json:"invitation"`
	CreatedAt        time.Time                             `json:"createdAt"`
	UpdatedAt        time.Time                             `json:"updatedAt"`
}

type MemberResponse struct {
	Member MemberJSON `json:"member"`
}

type MemberListResponse struct {
	Members []MemberJSON `json:"members"`
	Total   int          `json:"total"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
}

type MemberCountsJSON struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Expired  int `json:"expired"`
	Students int `json:"students"`
}

type MemberSummaryJSON struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FirstName string `json:"firstName"`
	BadgeID   string `json:"badgeId"`
}

type PresenceJSON struct {
	ID        string    `json:"id"`
	BadgeID   string    `json:"badgeId"`
	Timestamp time.Time `json:"timestamp"`
}

type PresenceListResponse struct {
	Presences []PresenceJSON `json:"presences"`
	Total     int            `json:"total"`
}

type MemberScansJSON struct {
	Member    MemberSummaryJSON `json:"member"`
	Presences []time.Time       `json:"presences"`
}

type MemberPresencesResponse struct {
	Members []MemberScansJSON `json:"members"`
	Unknown []PresenceJSON    `json:"unknown"`
}

type PlanningRowJSON struct {
	Member MemberSummaryJSON `json:"member"`
	Counts []int             `json:"counts"`
	Total  int               `json:"total"`
}

type PlanningResponse struct {
	WeekStart openapi_types.Date   `json:"weekStart"`
	Days      []openapi_types.Date `json:"days"`
	Rows      []PlanningRowJSON    `json:"rows"`
	Unknown   int                  `json:"unknown"`
}

type PaymentJSON struct {
	ID                string                                `json:"id"`
	MemberID          string                                `json:"memberId"`
	Amount            float64                               `json:"amount"`
	IsPaid            bool                                  `json:"isPaid"`
	EncaissementPrevu nullable.Nullable[openapi_types.Date] `json:"encaissementPrevu"`
	Method            string                                `json:"method"`
	Comment           string                                `json:"comment"`
	CreatedAt         time.Time                             `json:"createdAt"`
	UpdatedAt         time.Time                             `json:"updatedAt"`
}

type PaymentResponse struct {
	Payment PaymentJSON `json:"payment"`
}

type PaymentListResponse struct {
	Payments []PaymentJSON `json:"payments"`
}

type PaymentSummaryJSON struct {
	Paid        float64 `json:"paid"`
	Unpaid      float64 `json:"unpaid"`
	Expected    float64 `json:"expected"`
	Overdue     float64 `json:"overdue"`
	CountPaid   int     `json:"countPaid"`
	CountUnpaid int     `json:"countUnpaid"`
}

type BucketJSON struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type TopMemberJSON struct {
	BadgeID string                               `json:"badgeId"`
	Member  nullable.Nullable[MemberSummaryJSON] `json:"member"`
	Count   int                                  `json:"count"`
}

type PeriodJSON struct {
	Start openapi_types.Date `json:"start"`
	End   openapi_types.Date `json:"end"`
	Days  int                `json:"days"`
}

type MemberStatsJSON struct {
	Total          int            `json:"total"`
	Active         int            `json:"active"`
	Expired        int            `json:"expired"`
	Students       int            `json:"students"`
	ByGender       map[string]int `json:"byGender"`
	BySubscription map[string]int `json:"bySubscription"`
}

type PaymentStatsJSON struct {
	Paid        float64 `json:"paid"`
	Unpaid      float64 `json:"unpaid"`
	CountPaid   int     `json:"countPaid"`
	CountUnpaid int     `json:"countUnpaid"`
}

type StatsResponse struct {
	Period              PeriodJSON                          `json:"period"`
	GeneratedAt         time.Time                           `json:"generatedAt"`
	TotalPresences      int                                 `json:"totalPresences"`
	UniqueMembers       int                                 `json:"uniqueMembers"`
	AvgPerDay           float64                             `json:"avgPerDay"`
	ByHour              []int                               `json:"byHour"`
	ByWeekday           []BucketJSON                        `json:"byWeekday"`
	ByMonth             []BucketJSON                        `json:"byMonth"`
	ByDay               []BucketJSON                        `json:"byDay"`
	TopMembers          []TopMemberJSON                     `json:"topMembers"`
	Members             MemberStatsJSON                     `json:"members"`
	Payments            nullable.Nullable[PaymentStatsJSON] `json:"payments"`
	PaymentsUnavailable bool                                `json:"paymentsUnavailable"`
}

type UserJSON struct {
	ID       string                    `json:"id"`
	Email    string                    `json:"email"`
	Role     string                    `json:"role"`
	MemberID nullable.Nullable[string] `json:"memberId"`
}

type SessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      UserJSON  `json:"user"`
}

type MeResponse struct {
	User   UserJSON                      `json:"user"`
	Member nullable.Nullable[MemberJSON] `json:"member"`
}

type InvitationViewResponse struct {
	Member    MemberSummaryJSON `json:"member"`
	Email     string            `json:"email"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

type FileResponse struct {
	File MemberFileJSON `json:"file"`
}

type CleanDuplicatesResponse struct {
	Removed int `json:"removed"`
}

// Mapping.

func (s *Server) memberFromDomain(ctx context.Context, m domain.Member) MemberJSON {
	out := MemberJSON{
		ID:               string(m.ID),
		Name:             m.Name,
		FirstName:        m.FirstName,
		Birthdate:        nullableDate(m.Birthdate),
		Gender:           string(m.Gender),
		Address:          m.Address,
		Phone:            m.Phone,
		Mobile:           m.Mobile,
		Email:            m.Email,
		SubscriptionType: string(m.SubscriptionType),
		StartDate:        nullableDate(m.StartDate),
		EndDate:          nullableDate(m.EndDate),
		IsExpired:        m.Expired(s.now()),
		BadgeID:          string(m.BadgeID),
		Files:            make([]MemberFileJSON, 0, len(m.Files)),
		Photo:            m.Photo,
		Etudiant:         m.Etudiant,
		Invitation: InvitationJSON{
			Status:     string(m.Invitation.Status),
			SentAt:     m.Invitation.SentAt,
			ExpiresAt:  m.Invitation.ExpiresAt,
			AcceptedAt: m.Invitation.AcceptedAt,
		},
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if out.Invitation.Status == "" {
		out.Invitation.Status = string(domain.InvitationNone)
	}
	for _, f := range m.Files {
		out.Files = append(out.Files, MemberFileJSON{Name: f.Name, URL: f.URL, Path: f.Path})
	}
	if s.Files != nil && m.Photo != "" {
		u, err := s.Files.ResolvePhoto(ctx, m.Photo)
		if err != nil {
			s.logger().WarnContext(ctx, "photo url not resolved", "member_id", string(m.ID), "err", err)
		}
		out.PhotoURL = u
	}
	return out
}

func memberSummaryFromDomain(m domain.MemberSummary) MemberSummaryJSON {
	return MemberSummaryJSON{ID: string(m.ID), Name: m.Name, FirstName: m.FirstName, BadgeID: string(m.BadgeID)}
}

func presenceFromDomain(p domain.Presence) PresenceJSON {
	return PresenceJSON{ID: string(p.ID), BadgeID: string(p.BadgeID), Timestamp: p.Timestamp.UTC()}
}

func paymentFromDomain(p domain.Payment) PaymentJSON {
	return PaymentJSON{
		ID:                string(p.ID),
		MemberID:          string(p.MemberID),
		Amount:            p.Amount,
		IsPaid:            p.IsPaid,
		EncaissementPrevu: nullableDate(p.EncaissementPrevu),
		Method:            string(p.Method),
		Comment:           p.Comment,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func paymentsFromDomain(ps []domain.Payment) PaymentListResponse {
	out := PaymentListResponse{Payments: make([]PaymentJSON, 0, len(ps))}
	for _, p := range ps {
		out.Payments = append(out.Payments, paymentFromDomain(p))
	}
	return out
}

func summaryFromApp(s payments.Summary) PaymentSummaryJSON {
	return PaymentSummaryJSON{
		Paid:        s.Paid,
		Unpaid:      s.Unpaid,
		Expected:    s.Expected,
		Overdue:     s.Overdue,
		CountPaid:   s.CountPaid,
		CountUnpaid: s.CountUnpaid,
	}
}

func countsFromApp(c members.Counts) MemberCountsJSON {
	return MemberCountsJSON{Total: c.Total, Active: c.Active, Expired: c.Expired, Students: c.Students}
}

func memberPresencesFromApp(mp presences.MemberPresences) MemberPresencesResponse {
	out := MemberPresencesResponse{
		Members: make([]MemberScansJSON, 0, len(mp.Members)),
		Unknown: make([]PresenceJSON, 0, len(mp.Unknown)),
	}
	for _, ms := range mp.Members {
		out.Members = append(out.Members, MemberScansJSON{Member: memberSummaryFromDomain(ms.Member), Presences: ms.Presences})
	}
	for _, p := range mp.Unknown {
		out.Unknown = append(out.Unknown, presenceFromDomain(p))
	}
	return out
}

func planningFromApp(p presences.Planning) PlanningResponse {
	out := PlanningResponse{
		WeekStart: openapi_types.Date{Time: p.WeekStart},
		Days:      make([]openapi_types.Date, 0, len(p.Days)),
		Rows:      make([]PlanningRowJSON, 0, len(p.Rows)),
		Unknown:   p.Unknown,
	}
	for _, d := range p.Days {
		out.Days = append(out.Days, openapi_types.Date{Time: d})
	}
	for _, row := range p.Rows {
		out.Rows = append(out.Rows, PlanningRowJSON{
			Member: memberSummaryFromDomain(row.Member),
			Counts: append([]int(nil), row.Counts[:]...),
			Total:  row.Total,
		})
	}
	return out
}

func statsFromApp(r stats.Report) StatsResponse {
	out := StatsResponse{
		Period: PeriodJSON{
			Start: openapi_types.Date{Time: r.Period.Start},
			End:   openapi_types.Date{Time: r.Period.End},
			Days:  r.Period.Days,
		},
		GeneratedAt:    r.GeneratedAt,
		TotalPresences: r.TotalPresences,
		UniqueMembers:  r.UniqueMembers,
		AvgPerDay:      r.AvgPerDay,
		ByHour:         append([]int(nil), r.ByHour[:]...),
		ByWeekday:      make([]BucketJSON, 0, len(r.ByWeekday)),
		ByMonth:        bucketsFromApp(r.ByMonth),
		ByDay:          bucketsFromApp(r.ByDay),
		TopMembers:     make([]TopMemberJSON, 0, len(r.TopMembers)),
		Members: MemberStatsJSON{
			Total:          r.Members.Total,
			Active:         r.Members.Active,
			Expired:        r.Members.Expired,
			Students:       r.Members.Students,
			ByGender:       r.Members.ByGender,
			BySubscription: r.Members.BySubscription,
		},
		PaymentsUnavailable: r.PaymentsUnavailable,
	}
	for i, n := range r.ByWeekday {
		out.ByWeekday = append(out.ByWeekday, BucketJSON{Key: stats.WeekdayLabels[i], Count: n})
	}
	for _, e := range r.TopMembers {
		tm := TopMemberJSON{BadgeID: string(e.BadgeID), Count: e.Count}
		if e.Member != nil {
			tm.Member = nullable.NewNullableWithValue(memberSummaryFromDomain(*e.Member))
		} else {
			tm.Member = nullable.NewNullNullable[MemberSummaryJSON]()
		}
		out.TopMembers = append(out.TopMembers, tm)
	}
	if r.PaymentsUnavailable {
		out.Payments = nullable.NewNullNullable[PaymentStatsJSON]()
	} else {
		out.Payments = nullable.NewNullableWithValue(PaymentStatsJSON{
			Paid:        r.Payments.Paid,
			Unpaid:      r.Payments.Unpaid,
			CountPaid:   r.Payments.CountPaid,
			CountUnpaid: r.Payments.CountUnpaid,
		})
	}
	return out
}

func bucketsFromApp(bs []stats.Bucket) []BucketJSON {
	out := make([]BucketJSON, 0, len(bs))
	for _, b := range bs {
		out = append(out, BucketJSON{Key: b.Key, Count: b.Count})
	}
	return out
}

func userFromDomain(u domain.User) UserJSON {
	out := UserJSON{ID: string(u.ID), Email: u.Email, Role: string(u.Role)}
	if u.MemberID != nil {
		out.MemberID = nullable.NewNullableWithValue(string(*u.MemberID))
	} else {
		out.MemberID = nullable.NewNullNullable[string]()
	}
	return out
}

func sessionFromApp(s auth.Session) SessionResponse {
	return SessionResponse{Token: s.Token, ExpiresAt: s.ExpiresAt, User: userFromDomain(s.User)}
}

func nullableDate(p *time.Time) nullable.Nullable[openapi_types.Date] {
	if p == nil {
		return nullable.NewNullNullable[openapi_types.Date]()
	}
	return nullable.NewNullableWithValue(openapi_types.Date{Time: p.UTC()})
}

func datePtr(d *openapi_types.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

// Request mapping.

func createMemberInputFromRequest(b CreateMemberRequest) members.CreateMemberInput {
	return members.CreateMemberInput{
		Name:             b.Name,
		FirstName:        b.FirstName,
		Birthdate:        datePtr(b.Birthdate),
		Gender:           domain.Gender(b.Gender),
		Address:          b.Address,
		Phone:            b.Phone,
		Mobile:           b.Mobile,
		Email:            b.Email,
		SubscriptionType: b.SubscriptionType,
		StartDate:        datePtr(b.StartDate),
		EndDate:          datePtr(b.EndDate),
		BadgeID:          b.BadgeID,
		Photo:            b.Photo,
		Etudiant:         b.Etudiant,
	}
}

func updateMemberInputFromRequest(b UpdateMemberRequest) members.UpdateMemberInput {
	gender := members.Unspecified[domain.Gender]()
	if g := optionalFromNullable(b.Gender, members.Unspecified[string], members.Null[string], members.Some[string]); g.IsSpecified() {
		if g.IsNull() {
			gender = members.Null[domain.Gender]()
		} else {
			gender = members.Some(domain.Gender(g.Value()))
		}
	}
	return members.UpdateMemberInput{
		Name:             memberString(b.Name),
		FirstName:        memberString(b.FirstName),
		Birthdate:        memberDate(b.Birthdate),
		Gender:           gender,
		Address:          memberString(b.Address),
		Phone:            memberString(b.Phone),
		Mobile:           memberString(b.Mobile),
		Email:            memberString(b.Email),
		SubscriptionType: memberString(b.SubscriptionType),
		StartDate:        memberDate(b.StartDate),
		EndDate:          memberDate(b.EndDate),
		BadgeID:          memberString(b.BadgeID),
		Photo:            memberString(b.Photo),
		Etudiant:         optionalFromNullable(b.Etudiant, members.Unspecified[bool], members.Null[bool], members.Some[bool]),
	}
}

func updatePaymentInputFromRequest(b UpdatePaymentRequest) payments.UpdatePaymentInput {
	date := payments.Unspecified[time.Time]()
	if d := optionalFromNullable(b.EncaissementPrevu, payments.Unspecified[openapi_types.Date], payments.Null[openapi_types.Date], payments.Some[openapi_types.Date]); d.IsSpecified() {
		if d.IsNull() {
			date = payments.Null[time.Time]()
		} else {
			date = payments.Some(d.Value().Time)
		}
	}
	return payments.UpdatePaymentInput{
		Amount:            optionalFromNullable(b.Amount, payments.Unspecified[float64], payments.Null[float64], payments.Some[float64]),
		IsPaid:            optionalFromNullable(b.IsPaid, payments.Unspecified[bool], payments.Null[bool], payments.Some[bool]),
		EncaissementPrevu: date,
		Method:            optionalFromNullable(b.Method, payments.Unspecified[string], payments.Null[string], payments.Some[string]),
		Comment:           optionalFromNullable(b.Comment, payments.Unspecified[string], payments.Null[string], payments.Some[string]),
	}
}

func memberString(n nullable.Nullable[string]) members.Optional[string] {
	return optionalFromNullable(n, members.Unspecified[string], members.Null[string], members.Some[string])
}

func memberDate(n nullable.Nullable[openapi_types.Date]) members.Optional[time.Time] {
	if !n.IsSpecified() {
		return members.Unspecified[time.Time]()
	}
	if n.IsNull() {
		return members.Null[time.Time]()
	}
	v, err := n.Get()
	if err != nil {
		return members.Unspecified[time.Time]()
	}
	return members.Some(v.Time)
}

// optionalFromNullable converts a decoded JSON field into an app-layer tri-state.
// Each app package owns its Optional type, so the constructors are passed in.
func optionalFromNullable[T, O any](n nullable.Nullable[T], unspecified func() O, null func() O, some func(T) O) O {
	if !n.IsSpecified() {
		return unspecified()
	}
	if n.IsNull() {
		return null()
	}
	v, err := n.Get()
	if err != nil {
		return unspecified()
	}
	return some(v)
}
