package store

import (
	"context"

	"gorm.io/gorm"

	"carebook-server/internal/apperrors"
	"carebook-server/internal/models"
)

// ListDepartments returns all departments ordered by name.
func (s *Store) ListDepartments(ctx context.Context) ([]models.Department, error) {
	var departments []models.Department
	if err := s.conn(ctx).Order("name asc").Find(&departments).Error; err != nil {
		return nil, apperrors.Internal("Failed to fetch departments", err)
	}
	return departments, nil
}

func (s *Store) DepartmentByID(ctx context.Context, id string) (*models.Department, error) {
	var department models.Department
	if err := s.conn(ctx).First(&department, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "Department not found", "Failed to load department")
	}
	return &department, nil
}

func (s *Store) DepartmentsByIDs(ctx context.Context, ids []string) ([]models.Department, error) {
	ids = distinct(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	var departments []models.Department
	if err := s.conn(ctx).Where("id IN ?", ids).Find(&departments).Error; err != nil {
		return nil, apperrors.Internal("Failed to load departments", err)
	}
	return departments, nil
}

func (s *Store) CreateDepartment(ctx context.Context, department *models.Department) error {
	if err := s.conn(ctx).Create(department).Error; err != nil {
		if isDuplicate(err) {
			return apperrors.Validation("A department with this name already exists")
		}
		return apperrors.Internal("Failed to create department", err)
	}
	return nil
}

func (s *Store) UpdateDepartment(ctx context.Context, department *models.Department) error {
	res := s.conn(ctx).Model(&models.Department{}).Where("id = ?", department.ID).Updates(map[string]any{
		"name":        department.Name,
		"description": department.Description,
	})
	if res.Error != nil {
		if isDuplicate(res.Error) {
			return apperrors.Validation("A department with this name already exists")
		}
		return apperrors.Internal("Failed to update department", res.Error)
	}
	if res.RowsAffected == 0 {
		// MySQL reports zero rows when nothing changed; tell that apart from a missing row.
		if _, err := s.DepartmentByID(ctx, department.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) DeleteDepartment(ctx context.Context, id string) error {
	res := s.conn(ctx).Delete(&models.Department{}, "id = ?", id)
	if res.Error != nil {
		return apperrors.Internal("Failed to delete department", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("Department not found")
	}
	return nil
}

// CountDoctorsInDepartment counts doctors still assigned to a department.
func (s *Store) CountDoctorsInDepartment(ctx context.Context, departmentID string) (int64, error) {
	var n int64
	if err := s.conn(ctx).Model(&models.Doctor{}).Where("department_id = ?", departmentID).Count(&n).Error; err != nil {
		return 0, apperrors.Internal("Failed to count doctors", err)
	}
	return n, nil
}

func (s *Store) CreateDoctor(ctx context.Context, doctor *models.Doctor) error {
	if err := s.conn(ctx).Create(doctor).Error; err != nil {
		return apperrors.Internal("Failed to create doctor profile", err)
	}
	return nil
}

func (s *Store) DoctorByID(ctx context.Context, id string) (*models.Doctor, error) {
	var doctor models.Doctor
	if err := s.conn(ctx).First(&doctor, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "Doctor not found", "Failed to load doctor")
	}
	return &doctor, nil
}

func (s *Store) DoctorByUserID(ctx context.Context, userID string) (*models.Doctor, error) {
	var doctor models.Doctor
	if err := s.conn(ctx).Where("user_id = ?", userID).First(&doctor).Error; err != nil {
		return nil, notFoundOr(err, "Doctor not found", "Failed to load doctor")
	}
	return &doctor, nil
}

func (s *Store) DoctorsByIDs(ctx context.Context, ids []string) ([]models.Doctor, error) {
	ids = distinct(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	var doctors []models.Doctor
	if err := s.conn(ctx).Where("id IN ?", ids).Find(&doctors).Error; err != nil {
		return nil, apperrors.Internal("Failed to load doctors", err)
	}
	return doctors, nil
}

// ListDoctors returns every doctor, newest first.
func (s *Store) ListDoctors(ctx context.Context) ([]models.Doctor, error) {
	var doctors []models.Doctor
	if err := s.conn(ctx).Order("created_at desc").Find(&doctors).Error; err != nil {
		return nil, apperrors.Internal("Failed to fetch doctors", err)
	}
	return doctors, nil
}

func (s *Store) ListDoctorsByDepartment(ctx context.Context, departmentID string) ([]models.Doctor, error) {
	var doctors []models.Doctor
	if err := s.conn(ctx).Where("department_id = ?", departmentID).Order("created_at asc").Find(&doctors).Error; err != nil {
		return nil, apperrors.Internal("Failed to fetch doctors", err)
	}
	return doctors, nil
}

// DeleteDoctor removes the doctor row and the owner's doctor role row.
func (s *Store) DeleteDoctor(ctx context.Context, id string) error {
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var doctor models.Doctor
		if err := tx.First(&doctor, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&doctor).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ? AND role = ?", doctor.UserID, models.RoleDoctor).Delete(&models.UserRole{}).Error
	})
	if err != nil {
		return notFoundOr(err, "Doctor not found", "Failed to delete doctor")
	}
	return nil
}
