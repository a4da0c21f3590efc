package certificateValidator

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"lmscert/middleware"
	"lmscert/services"
	"lmscert/utils"
)

// DateLayout is the accepted format for completion dates in requests.
const DateLayout = "2006-01-02"

const maxListLimit = 500

func StudentRequest() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			FirstName    string `json:"first_name" form:"first_name"`
			LastName     string `json:"last_name" form:"last_name"`
			Email        string `json:"email" form:"email"`
			Phone        string `json:"phone" form:"phone"`
			ProductID    uint   `json:"product_id" form:"product_id"`
			ProjectLink  string `json:"project_link" form:"project_link"`
			CaptchaToken string `json:"cf_turnstile_response" form:"cf-turnstile-response"`
		})

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)
		required(errors, "first_name", reqData.FirstName, "First name is required!")
		required(errors, "last_name", reqData.LastName, "Last name is required!")
		required(errors, "email", reqData.Email, "Email is required!")
		required(errors, "phone", reqData.Phone, "Phone is required!")
		if reqData.ProductID == 0 {
			errors["product_id"] = "Please select a course!"
		}

		// Respond with validation errors if any exist
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		userID, _ := middleware.UserID(c)
		c.Locals("validatedStudentRequest", &services.StudentSubmission{
			UserID:       userID,
			FirstName:    reqData.FirstName,
			LastName:     reqData.LastName,
			Email:        reqData.Email,
			Phone:        reqData.Phone,
			ProductID:    reqData.ProductID,
			ProjectLink:  reqData.ProjectLink,
			CaptchaToken: reqData.CaptchaToken,
			RemoteIP:     c.IP(),
		})
		return c.Next()
	}
}

func VendorRequest() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			FirstName      string `json:"student_first_name" form:"student_first_name"`
			LastName       string `json:"student_last_name" form:"student_last_name"`
			Email          string `json:"student_email" form:"student_email"`
			Phone          string `json:"student_phone" form:"student_phone"`
			ProductID      uint   `json:"product_id" form:"product_id"`
			InstructorName string `json:"instructor_name" form:"instructor_name"`
			CompletionDate string `json:"completion_date" form:"completion_date"`
			VendorNotes    string `json:"vendor_notes" form:"vendor_notes"`
			CaptchaToken   string `json:"cf_turnstile_response" form:"cf-turnstile-response"`
		})

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)
		required(errors, "student_first_name", reqData.FirstName, "Student first name is required!")
		required(errors, "student_last_name", reqData.LastName, "Student last name is required!")
		required(errors, "student_email", reqData.Email, "Student email is required!")
		required(errors, "student_phone", reqData.Phone, "Student phone is required!")
		required(errors, "instructor_name", reqData.InstructorName, "Instructor name is required!")
		if reqData.ProductID == 0 {
			errors["product_id"] = "Please select a course!"
		}

		completion, err := time.ParseInLocation(DateLayout, strings.TrimSpace(reqData.CompletionDate), time.Local)
		if err != nil {
			errors["completion_date"] = "Completion date must be in YYYY-MM-DD format!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		vendorID, _ := middleware.UserID(c)
		c.Locals("validatedVendorRequest", &services.VendorSubmission{
			VendorID:       vendorID,
			FirstName:      reqData.FirstName,
			LastName:       reqData.LastName,
			Email:          reqData.Email,
			Phone:          reqData.Phone,
			ProductID:      reqData.ProductID,
			InstructorName: reqData.InstructorName,
			CompletionDate: completion,
			VendorNotes:    reqData.VendorNotes,
			CaptchaToken:   reqData.CaptchaToken,
			RemoteIP:       c.IP(),
		})
		return c.Next()
	}
}

func Verify() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Search       string `json:"cert_search" form:"cert_search"`
			CaptchaToken string `json:"cf_turnstile_response" form:"cf-turnstile-response"`
		})

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		if strings.TrimSpace(reqData.Search) == "" {
			return middleware.ValidationErrorResponse(c, map[string]string{
				"cert_search": "Please enter a certificate ID, name or email!",
			})
		}

		input := &services.VerifyInput{
			Query:        reqData.Search,
			IP:           c.IP(),
			CaptchaToken: reqData.CaptchaToken,
		}
		if id, ok := middleware.UserID(c); ok {
			input.UserID = &id
		}
		c.Locals("validatedVerify", input)
		return c.Next()
	}
}

// RequestID parses the :id path parameter.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseUint(c.Params("id"), 10, 64)
		if err != nil || id == 0 {
			return middleware.ValidationErrorResponse(c, map[string]string{"id": "Invalid request id!"})
		}
		c.Locals("requestID", uint(id))
		return c.Next()
	}
}

// Approve accepts an optional completion date and, for multipart requests, an
// optional certificate_pdf file that replaces the generated document.
func Approve() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			CompletionDate string `json:"completion_date" form:"completion_date"`
		})
		if len(c.Body()) > 0 {
			if err := c.BodyParser(reqData); err != nil {
				return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
			}
		}

		errors := make(map[string]string)
		input := &services.ApproveInput{}
		input.CompletionDate = optionalDate(errors, reqData.CompletionDate)

		if file, err := c.FormFile("certificate_pdf"); err == nil {
			data, err := utils.ReadUploadedFile(file, services.MaxUploadSize)
			if err != nil {
				errors["certificate_pdf"] = "File size exceeds 10MB limit"
			} else {
				input.Upload = &services.Upload{FileName: file.Filename, Data: data}
			}
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedApproval", input)
		return c.Next()
	}
}

func Regenerate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			CompletionDate string `json:"completion_date" form:"completion_date"`
		})
		if len(c.Body()) > 0 {
			if err := c.BodyParser(reqData); err != nil {
				return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
			}
		}

		errors := make(map[string]string)
		date := optionalDate(errors, reqData.CompletionDate)
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedCompletionDate", date)
		return c.Next()
	}
}

func Reject() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Reason string `json:"reason" form:"reason"`
		})
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		if strings.TrimSpace(reqData.Reason) == "" {
			return middleware.ValidationErrorResponse(c, map[string]string{"reason": "Rejection reason is required!"})
		}

		c.Locals("validatedReason", strings.TrimSpace(reqData.Reason))
		return c.Next()
	}
}

// BulkAction carries a validated bulk request.
type BulkAction struct {
	Action string `json:"action"`
	IDs    []uint `json:"ids"`
}

func Bulk() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(BulkAction)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)
		if reqData.Action != "approve" && reqData.Action != "reject" {
			errors["action"] = "Action must be approve or reject!"
		}
		if len(reqData.IDs) == 0 {
			errors["ids"] = "Select at least one request!"
		}
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedBulk", reqData)
		return c.Next()
	}
}

// ListQuery reads optional status and limit query parameters.
func ListQuery() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Status string `query:"status"`
			Limit  int    `query:"limit"`
		})
		if err := c.QueryParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid query!", nil)
		}

		if reqData.Limit < 0 {
			return middleware.ValidationErrorResponse(c, map[string]string{"limit": "Limit must be greater than 0!"})
		}
		if reqData.Limit == 0 || reqData.Limit > maxListLimit {
			reqData.Limit = maxListLimit
		}

		c.Locals("listStatus", strings.TrimSpace(reqData.Status))
		c.Locals("listLimit", reqData.Limit)
		return c.Next()
	}
}

func Settings() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := make(map[string]string)
		if err := c.BodyParser(&reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		if len(reqData) == 0 {
			return middleware.ValidationErrorResponse(c, map[string]string{"settings": "Nothing to update!"})
		}

		c.Locals("validatedSettings", reqData)
		return c.Next()
	}
}

func required(errors map[string]string, field, value, msg string) {
	if strings.TrimSpace(value) == "" {
		errors[field] = msg
	}
}

func optionalDate(errors map[string]string, value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	t, err := time.ParseInLocation(DateLayout, value, time.Local)
	if err != nil {
		errors["completion_date"] = "Completion date must be in YYYY-MM-DD format!"
		return nil
	}
	return &t
}
