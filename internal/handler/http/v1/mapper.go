package v1

import "github.com/shenikar/campus_safety_system/internal/models"

// ModelToIncidentResponse преобразует доменную модель в DTO для ответа
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	return &IncidentResponse{
		ID:           model.ID,
		UserID:       model.UserID,
		Category:     string(model.Category),
		Description:  model.Description,
		Latitude:     model.Latitude,
		Longitude:    model.Longitude,
		Status:       string(model.Status),
		ConfirmCount: model.ConfirmCount,
		RejectCount:  model.RejectCount,
		CreatedAt:    model.CreatedAt,
		ResolvedAt:   model.ResolvedAt,
	}
}

// ModelsToIncidentResponses преобразует слайс моделей в слайс DTO
func ModelsToIncidentResponses(models []*models.Incident) []*IncidentResponse {
	responses := make([]*IncidentResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToIncidentResponse(model)
	}
	return responses
}

// ModelToUserResponse преобразует доменную модель пользователя в DTO
func ModelToUserResponse(model *models.User) *UserResponse {
	return &UserResponse{
		ID:        model.ID,
		Email:     model.Email,
		Role:      string(model.Role),
		IsActive:  model.IsActive,
		FullName:  model.FullName,
		Phone:     model.Phone,
		City:      model.City,
		CreatedAt: model.CreatedAt,
	}
}

// ModelsToUserResponses преобразует слайс пользователей в слайс DTO
func ModelsToUserResponses(models []*models.User) []*UserResponse {
	responses := make([]*UserResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToUserResponse(model)
	}
	return responses
}

// ModelToVoteResponse преобразует доменную модель голоса в DTO
func ModelToVoteResponse(model *models.Vote) *VoteResponse {
	return &VoteResponse{
		ID:         model.ID,
		IncidentID: model.IncidentID,
		UserID:     model.UserID,
		IsTruthful: model.IsTruthful,
		CreatedAt:  model.CreatedAt,
	}
}

// ModelToSOSLogResponse преобразует запись журнала SOS в DTO
func ModelToSOSLogResponse(model *models.SOSLog) *SOSLogResponse {
	return &SOSLogResponse{
		ID:        model.ID,
		UserID:    model.UserID,
		Latitude:  model.Latitude,
		Longitude: model.Longitude,
		Timestamp: model.CreatedAt,
	}
}

// ModelsToSOSLogResponses преобразует слайс записей журнала SOS в слайс DTO
func ModelsToSOSLogResponses(models []*models.SOSLog) []*SOSLogResponse {
	responses := make([]*SOSLogResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToSOSLogResponse(model)
	}
	return responses
}
