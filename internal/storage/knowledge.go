package storage

import "livechat/backend/internal/models"

func (s *Service) SaveKnowledgeDocument(doc *models.KnowledgeDocument) error {
	return wrap("save knowledge document", s.DB.Save(doc).Error)
}

func (s *Service) ListKnowledgeDocuments() ([]models.KnowledgeDocument, error) {
	var docs []models.KnowledgeDocument
	if err := s.DB.Order("category ASC, id ASC").Find(&docs).Error; err != nil {
		return nil, wrap("list knowledge documents", err)
	}
	return docs, nil
}

func (s *Service) DeleteKnowledgeDocuments() error {
	return wrap("delete knowledge documents", s.DB.Where("1 = 1").Delete(&models.KnowledgeDocument{}).Error)
}
