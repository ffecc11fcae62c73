package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/siteboard/siteboard/internal/board"
	"github.com/siteboard/siteboard/internal/models"
)

var allRows = []models.RowType{
	models.RowForeman,
	models.RowCrew,
	models.RowEquipment,
	models.RowTrucks,
}

// registerRoutes sets up all dashboard routes on the Gin router.
func registerRoutes(router *gin.Engine, db *gorm.DB, b *board.Board) {
	api := router.Group("/api")
	api.GET("/jobs", handleJobList(db))
	api.GET("/jobs/:id/board", handleJobBoard(b))
	api.GET("/resources", handleResourceList(db))
	api.GET("/resources/:id/shifts", handleResourceShifts(b))
	api.GET("/events", handleSSE(db))
}

func handleJobList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var jobs []models.Job
		q := db.Order("date ASC, shift ASC")
		if date := c.Query("date"); date != "" {
			q = q.Where("date = ?", date)
		}
		if err := q.Find(&jobs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"jobs": jobs})
	}
}

// rowView is one job row with its assignments in display order.
type rowView struct {
	Row         models.RowType   `json:"row"`
	Assignments []assignmentView `json:"assignments"`
}

// assignmentView flattens an assignment with its resource and children
// for display.
type assignmentView struct {
	models.Assignment
	Resource    *models.Resource `json:"resource,omitempty"`
	Attachments []assignmentView `json:"attachments,omitempty"`
}

func handleJobBoard(b *board.Board) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("id")
		job, ok := b.Job(jobID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found: " + jobID})
			return
		}

		rows := make([]rowView, 0, len(allRows))
		for _, row := range allRows {
			view := rowView{Row: row, Assignments: []assignmentView{}}
			for _, a := range b.AssignmentsByJobRow(jobID, row) {
				if a.Attached() {
					continue
				}
				view.Assignments = append(view.Assignments, buildAssignmentView(b, a))
			}
			rows = append(rows, view)
		}
		c.JSON(http.StatusOK, gin.H{"job": job, "rows": rows})
	}
}

func buildAssignmentView(b *board.Board, a models.Assignment) assignmentView {
	view := assignmentView{Assignment: a}
	if r, ok := b.Resource(a.ResourceID); ok {
		view.Resource = &r
	}
	for _, child := range b.AttachedAssignments(a.ID) {
		view.Attachments = append(view.Attachments, buildAssignmentView(b, child))
	}
	return view
}

func handleResourceList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var resources []models.Resource
		q := db.Order("name ASC")
		if kind := c.Query("kind"); kind != "" {
			q = q.Where("kind = ?", kind)
		}
		if err := q.Find(&resources).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"resources": resources})
	}
}

// shiftReport is the per-resource occupancy answer.
type shiftReport struct {
	ResourceID    string      `json:"resourceId"`
	WorkingDouble bool        `json:"workingDouble"`
	MultipleJobs  bool        `json:"multipleJobs"`
	DayJob        *models.Job `json:"dayJob,omitempty"`
	NightJob      *models.Job `json:"nightJob,omitempty"`
}

func handleResourceShifts(b *board.Board) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, ok := b.Resource(id); !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "resource not found: " + id})
			return
		}
		ds := b.DoubleShiftJobs(id)
		c.JSON(http.StatusOK, shiftReport{
			ResourceID:    id,
			WorkingDouble: b.IsWorkingDouble(id),
			MultipleJobs:  b.HasMultipleJobAssignments(id),
			DayJob:        ds.DayJob,
			NightJob:      ds.NightJob,
		})
	}
}
