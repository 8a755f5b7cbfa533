package sandbox

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ehr/auxcare/internal/domain/auxiliary"
	"github.com/ehr/auxcare/internal/domain/care"
	"github.com/ehr/auxcare/internal/domain/diagnosis"
	"github.com/ehr/auxcare/internal/domain/medication"
	"github.com/ehr/auxcare/internal/domain/patient"
	"github.com/ehr/auxcare/internal/domain/room"
	"github.com/ehr/auxcare/internal/platform/apiclient"
	"github.com/ehr/auxcare/internal/platform/auth"
	"github.com/ehr/auxcare/pkg/pagination"
)

type Handler struct {
	store Store
	opts  Options
	now   func() time.Time
}

func NewHandler(store Store, opts Options) *Handler {
	return &Handler{store: store, opts: opts, now: time.Now}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/auth/login", h.Login)

	api.GET("/rooms", h.ListRooms)
	api.PUT("/rooms/:number/patient", h.AssignRoom)
	api.DELETE("/rooms/:number/patient", h.ReleaseRoom)

	api.GET("/patients", h.ListPatients)
	api.POST("/patients", h.CreatePatient)
	api.GET("/patients/:historial", h.GetPatient)
	api.PUT("/patients/:historial", h.UpdatePatient)

	api.GET("/patients/:historial/diagnosis", h.GetDiagnosis)
	api.PUT("/patients/:historial/diagnosis", h.SaveDiagnosis)

	api.GET("/medications", h.ListMedications)
	api.GET("/patients/:historial/prescriptions", h.ListPrescriptions)
	api.POST("/patients/:historial/prescriptions", h.AddPrescription)

	api.GET("/patients/:historial/care-records", h.ListCareRecords)
	api.POST("/patients/:historial/care-records", h.AddCareRecord)
}

// storeError maps store sentinels onto HTTP errors.
func storeError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func intParam(c echo.Context, name string) (int, error) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return v, nil
}

func acknowledge(c echo.Context, status int) error {
	return c.JSON(status, apiclient.Ack{Created: true})
}

// -- Auth --

func (h *Handler) Login(c echo.Context) error {
	var creds auxiliary.Credentials
	if err := c.Bind(&creds); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	acct, err := h.store.Account(ctx, creds.ID)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if err != nil {
		return storeError(err)
	}
	if err := auth.CheckPassword(acct.PasswordHash, creds.Password); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	name := acct.Auxiliary.Name + " " + acct.Auxiliary.Surname
	token, err := auth.IssueToken(h.opts.SigningKey, h.opts.Issuer, acct.Auxiliary.ID, name, h.opts.TokenTTL, h.now())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, auxiliary.LoginResponse{Auxiliary: acct.Auxiliary, Token: token})
}

// -- Rooms --

func (h *Handler) ListRooms(c echo.Context) error {
	rooms, err := h.store.ListRooms(c.Request().Context())
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, rooms)
}

func (h *Handler) AssignRoom(c echo.Context) error {
	number, err := intParam(c, "number")
	if err != nil {
		return err
	}
	var a room.Assignment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if a.HistorialNumber <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "historialNumber is required")
	}
	if err := h.store.AssignRoom(c.Request().Context(), number, a.HistorialNumber); err != nil {
		return storeError(err)
	}
	return acknowledge(c, http.StatusOK)
}

func (h *Handler) ReleaseRoom(c echo.Context) error {
	number, err := intParam(c, "number")
	if err != nil {
		return err
	}
	if err := h.store.ReleaseRoom(c.Request().Context(), number); err != nil {
		return storeError(err)
	}
	return acknowledge(c, http.StatusOK)
}

// -- Patients --

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.store.ListPatients(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return storeError(err)
	}
	if items == nil {
		items = []patient.Patient{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetPatient(c echo.Context) error {
	historial, err := intParam(c, "historial")
	if err != nil {
		return err
	}
	p, err := h.store.GetPatient(c.Request().Context(), historial)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var p patient.Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := p.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if p.AdmittedAt.IsZero() {
		p.AdmittedAt = h.now().UTC()
	}
	if err := h.store.CreatePatient(c.Request().Context(), &p); err != nil {
		return storeError(err)
	}
	return acknowledge(c, http.StatusCreated)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	historial, err := intParam(c, "historial")
	if err != nil {
		return err
	}
	var p patient.Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.HistorialNumber = historial
	if err := p.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.store.UpdatePatient(c.Request().Context(), &p); err != nil {
		return storeError(err)
	}
	return acknowledge(c, http.StatusOK)
}

// -- Diagnosis --

func (h *Handler) GetDiagnosis(c echo.Context) error {
	historial, err := intParam(c, "historial")
	if err != nil {
		return err
	}
	d, err := h.store.GetDiagnosis(c.Request().Context(), historial)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) SaveDiagnosis(c echo.Context) error {
	historial, err := intParam(c, "historial")
	if err != nil {
		return err
	}
	var d diagnosis.Diagnosis
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d.HistorialNumber = historial
	if err := d.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if d.DiagnosedAt.IsZero() {
		d.DiagnosedAt = h.now().UTC()
	}
	if err := h.store.SaveDiagnosis(c.Request().Context(), &d); err != nil {
		return storeError(err)
	}
	return acknowledge(c, http.StatusOK)
}

// -- Medication --

func (h *Handler) ListMedications(c echo.Context) error {
	meds, err := h.store.ListMedications(c.Request().Context())
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, meds)
}

func (h *Handler) ListPrescriptions(c echo.Context) error {
	historial, err := intParam(c, "historial")
	if err != nil {
		return err
	}
	ps, err := h.store.ListPrescriptions(c.Request().Context(), historial)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, ps)
}

func (h *Handler) AddPrescription(c echo.Context) error {
	historial, err := intParam(c, "historial")
	if err != nil {
		return err
	}
	var p medication.Prescription
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.HistorialNumber = historial
	if err := p.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.store.AddPrescription(c.Request().Context(), &p); err != nil {
		return storeError(err)
	}
	return acknowledge(c, http.StatusCreated)
}

// -- Care records --

func (h *Handler) ListCareRecords(c echo.Context) error {
	historial, err := intParam(c, "historial")
	if err != nil {
		return err
	}
	rs, err := h.store.ListCareRecords(c.Request().Context(), historial)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, rs)
}

func (h *Handler) AddCareRecord(c echo.Context) error {
	historial, err := intParam(c, "historial")
	if err != nil {
		return err
	}
	var r care.Record
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r.HistorialNumber = historial
	if id := auth.AuxiliaryIDFromContext(c.Request().Context()); id != 0 {
		r.AuxiliaryID = id
	}
	if err := r.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if r.RecordedAt.IsZero() {
		r.RecordedAt = h.now().UTC()
	}
	if err := h.store.AddCareRecord(c.Request().Context(), &r); err != nil {
		return storeError(err)
	}
	return acknowledge(c, http.StatusCreated)
}
