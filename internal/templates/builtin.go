package templates

import "github.com/rato-kaz/vietnamese-business-rag-chatbot/internal/core"

// Builtin returns the five standard business-registration dossiers.
// giay_de_nghi comes first: it is the default dossier started when a
// user asks to register a company.
func Builtin() []*core.FormTemplate {
	return []*core.FormTemplate{
		{
			Name:        "giay_de_nghi",
			DisplayName: "Giấy đề nghị đăng ký doanh nghiệp",
			Description: "Đơn đề nghị đăng ký thành lập doanh nghiệp",
			Fields: []core.FormField{
				{
					Name:        "ten_cong_ty",
					DisplayName: "Tên công ty",
					Type:        core.FieldText,
					Required:    true,
					Help:        "Tên đầy đủ của công ty bằng tiếng Việt",
				},
				{
					Name:        "loai_hinh_doanh_nghiep",
					DisplayName: "Loại hình doanh nghiệp",
					Type:        core.FieldEnum,
					Required:    true,
					Options:     []string{"TNHH một thành viên", "TNHH hai thành viên trở lên", "Cổ phần", "Hợp danh", "Tư nhân"},
					Help:        "Loại hình pháp lý của doanh nghiệp",
				},
				{
					Name:        "dia_chi_tru_so",
					DisplayName: "Địa chỉ trụ sở chính",
					Type:        core.FieldText,
					Required:    true,
					Help:        "Địa chỉ trụ sở chính của công ty",
				},
				{
					Name:        "von_dieu_le",
					DisplayName: "Vốn điều lệ (VNĐ)",
					Type:        core.FieldNumber,
					Required:    true,
					Help:        "Số vốn điều lệ đăng ký, đơn vị đồng",
				},
				{
					Name:        "nganh_nghe_kinh_doanh",
					DisplayName: "Ngành nghề kinh doanh",
					Type:        core.FieldText,
					Required:    true,
					Help:        "Ngành nghề kinh doanh chính",
				},
				{
					Name:        "nguoi_dai_dien",
					DisplayName: "Người đại diện theo pháp luật",
					Type:        core.FieldText,
					Required:    true,
					Help:        "Họ và tên người đại diện theo pháp luật",
				},
				{
					Name:        "email",
					DisplayName: "Email liên hệ",
					Type:        core.FieldText,
					Pattern:     `^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`,
					Help:        "Địa chỉ email nhận thông báo",
				},
				{
					Name:        "dien_thoai",
					DisplayName: "Số điện thoại",
					Type:        core.FieldText,
					Pattern:     `^(0|\+84)\d{9,10}$`,
					Help:        "Số điện thoại liên hệ",
				},
			},
		},
		{
			Name:        "dieu_le_cong_ty",
			DisplayName: "Điều lệ công ty",
			Description: "Thông tin lập điều lệ công ty",
			Fields: []core.FormField{
				{Name: "ten_cong_ty", DisplayName: "Tên công ty", Type: core.FieldText, Required: true, Help: "Tên đầy đủ của công ty"},
				{Name: "dia_chi_tru_so", DisplayName: "Địa chỉ trụ sở chính", Type: core.FieldText, Required: true},
				{Name: "von_dieu_le", DisplayName: "Vốn điều lệ (VNĐ)", Type: core.FieldNumber, Required: true},
				{Name: "ngay_thong_qua", DisplayName: "Ngày thông qua điều lệ", Type: core.FieldDate, Required: true, Help: "Ngày thông qua (dd/mm/yyyy)"},
			},
		},
		{
			Name:        "danh_sach_chu_so_huu",
			DisplayName: "Danh sách chủ sở hữu",
			Description: "Danh sách thông tin chủ sở hữu công ty",
			Fields: []core.FormField{
				{Name: "chu_so_huu_ho_ten", DisplayName: "Họ và tên chủ sở hữu", Type: core.FieldText, Required: true, Help: "Họ và tên đầy đủ của chủ sở hữu công ty"},
				{Name: "chu_so_huu_cccd", DisplayName: "Số CMND/CCCD", Type: core.FieldText, Required: true, Pattern: `^\d{9}(\d{3})?$`, Help: "Số chứng minh nhân dân hoặc căn cước công dân"},
				{Name: "chu_so_huu_ngay_sinh", DisplayName: "Ngày sinh", Type: core.FieldDate, Required: true, Help: "Ngày sinh của chủ sở hữu (dd/mm/yyyy)"},
				{Name: "chu_so_huu_dia_chi", DisplayName: "Địa chỉ thường trú", Type: core.FieldText, Required: true},
				{Name: "chu_so_huu_dien_thoai", DisplayName: "Số điện thoại", Type: core.FieldText, Pattern: `^(0|\+84)\d{9,10}$`, Help: "Số điện thoại liên hệ"},
			},
		},
		{
			Name:        "danh_sach_co_dong",
			DisplayName: "Danh sách cổ đông",
			Description: "Danh sách thông tin cổ đông sáng lập",
			Fields: []core.FormField{
				{Name: "co_dong_ho_ten", DisplayName: "Họ và tên cổ đông", Type: core.FieldText, Required: true},
				{Name: "co_dong_cccd", DisplayName: "Số CMND/CCCD", Type: core.FieldText, Required: true, Pattern: `^\d{9}(\d{3})?$`},
				{Name: "co_dong_ngay_sinh", DisplayName: "Ngày sinh", Type: core.FieldDate, Required: true, Help: "Ngày sinh (dd/mm/yyyy)"},
				{Name: "co_dong_dia_chi", DisplayName: "Địa chỉ thường trú", Type: core.FieldText, Required: true},
				{Name: "ty_le_gop_von", DisplayName: "Tỷ lệ góp vốn (%)", Type: core.FieldNumber, Required: true, Help: "Phần trăm vốn góp của cổ đông"},
			},
		},
		{
			Name:        "giay_uy_quyen",
			DisplayName: "Giấy ủy quyền",
			Description: "Giấy ủy quyền thực hiện thủ tục đăng ký doanh nghiệp",
			Fields: []core.FormField{
				{Name: "nguoi_uy_quyen", DisplayName: "Người ủy quyền", Type: core.FieldText, Required: true, Help: "Họ và tên người ủy quyền"},
				{Name: "nguoi_duoc_uy_quyen", DisplayName: "Người được ủy quyền", Type: core.FieldText, Required: true},
				{Name: "cccd_nguoi_duoc_uy_quyen", DisplayName: "Số CMND/CCCD người được ủy quyền", Type: core.FieldText, Required: true, Pattern: `^\d{9}(\d{3})?$`},
				{Name: "pham_vi_uy_quyen", DisplayName: "Phạm vi ủy quyền", Type: core.FieldText, Required: true, Help: "Nội dung công việc được ủy quyền"},
				{Name: "ngay_uy_quyen", DisplayName: "Ngày ủy quyền", Type: core.FieldDate, Required: true, Help: "Ngày lập giấy ủy quyền (dd/mm/yyyy)"},
			},
		},
	}
}
